package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/courseloom/scorm-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.ProgressEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.ProgressEvent)) error
	Close() error
}

// NewLocalBus returns an in-process bus: published events go straight
// to forwarders registered in the same process. Used when Redis is not
// configured, so single-instance deployments still stream progress.
func NewLocalBus() Bus { return &localBus{} }

type localBus struct {
	mu       sync.Mutex
	handlers []func(ev realtime.ProgressEvent)
}

func (b *localBus) Publish(ctx context.Context, ev realtime.ProgressEvent) error {
	b.mu.Lock()
	handlers := make([]func(ev realtime.ProgressEvent), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.ProgressEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onEvent)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
