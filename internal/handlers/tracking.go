package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/requestdata"
	"github.com/courseloom/scorm-backend/internal/services"
)

// TrackingHandler exposes the runtime API the embedded player adapter
// calls: one route per RTE verb plus interaction reporting.
type TrackingHandler struct {
	log                *logger.Logger
	trackingService    services.TrackingService
	interactionService services.InteractionService
}

func NewTrackingHandler(
	baseLog *logger.Logger,
	trackingService services.TrackingService,
	interactionService services.InteractionService,
) *TrackingHandler {
	return &TrackingHandler{
		log:                baseLog.With("handler", "TrackingHandler"),
		trackingService:    trackingService,
		interactionService: interactionService,
	}
}

func (th *TrackingHandler) userAndSco(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return uuid.Nil, uuid.Nil, false
	}
	scoID, ok := parseUUIDParam(c, "sco")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return rd.UserID, scoID, true
}

func (th *TrackingHandler) Initialize(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	tracking, err := th.trackingService.Initialize(c.Request.Context(), userID, scoID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, tracking)
}

func (th *TrackingHandler) GetValue(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	element := c.Query("element")
	if element == "" {
		RespondError(c, http.StatusBadRequest, "missing_element", fmt.Errorf("query param 'element' is required"))
		return
	}
	value, err := th.trackingService.GetValue(c.Request.Context(), userID, scoID, element)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"element": element, "value": value})
}

func (th *TrackingHandler) SetValue(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	var req struct {
		Element string `json:"element" binding:"required"`
		Value   string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := th.trackingService.SetValue(c.Request.Context(), userID, scoID, req.Element, req.Value); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"element": req.Element, "success": true})
}

func (th *TrackingHandler) Commit(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	tracking, err := th.trackingService.Commit(c.Request.Context(), userID, scoID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, tracking)
}

func (th *TrackingHandler) Terminate(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	tracking, err := th.trackingService.Terminate(c.Request.Context(), userID, scoID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, tracking)
}

func (th *TrackingHandler) RecordInteraction(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	var input services.InteractionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	row, err := th.interactionService.RecordInteraction(c.Request.Context(), userID, scoID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, row)
}

func (th *TrackingHandler) ListInteractions(c *gin.Context) {
	userID, scoID, ok := th.userAndSco(c)
	if !ok {
		return
	}
	rows, err := th.interactionService.ListInteractions(c.Request.Context(), userID, scoID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"interactions": rows})
}
