package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Progress event kinds published by the tracking engine.
const (
	EventInitialized = "initialized"
	EventCommitted   = "committed"
	EventTerminated  = "terminated"
	EventInteraction = "interaction"
)

// ProgressEvent is broadcast whenever a learner's runtime state changes,
// so dashboards can refresh without polling.
type ProgressEvent struct {
	Kind      string    `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	PackageID uuid.UUID `json:"package_id"`
	ScoID     uuid.UUID `json:"sco_id"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}
