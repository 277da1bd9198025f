package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/realtime"
	"github.com/courseloom/scorm-backend/internal/requestdata"
)

// ProgressHandler streams the caller's progress events over
// server-sent events so dashboards can refresh without polling.
type ProgressHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewProgressHandler(baseLog *logger.Logger, hub *realtime.Hub) *ProgressHandler {
	return &ProgressHandler{
		log: baseLog.With("handler", "ProgressHandler"),
		hub: hub,
	}
}

// Stream holds the connection open and pushes one SSE message per
// progress event until the client disconnects.
func (ph *ProgressHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	events, cancel := ph.hub.Subscribe(rd.UserID)
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ph.log.Debug("Progress stream opened", "user_id", rd.UserID)
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", ev)
			return true
		}
	})
	ph.log.Debug("Progress stream closed", "user_id", rd.UserID)
}
