package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/realtime"
	"github.com/courseloom/scorm-backend/internal/realtime/bus"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/scorm"
	"github.com/courseloom/scorm-backend/internal/types"
)

type InteractionInput struct {
	InteractionID   string     `json:"interaction_id" binding:"required"`
	Type            string     `json:"type"`
	Description     string     `json:"description"`
	LearnerResponse string     `json:"learner_response"`
	CorrectResponse string     `json:"correct_response"`
	Result          string     `json:"result"`
	Weighting       *float64   `json:"weighting"`
	LatencySeconds  *float64   `json:"latency_seconds"`
	Timestamp       *time.Time `json:"timestamp"`
}

// InteractionService records quiz interactions and keeps the cached
// analytics columns on the tracking record in step with them.
type InteractionService interface {
	RecordInteraction(ctx context.Context, userID, scoID uuid.UUID, input InteractionInput) (*types.ScormInteraction, error)
	ListInteractions(ctx context.Context, userID, scoID uuid.UUID) ([]*types.ScormInteraction, error)
}

type interactionService struct {
	db              *gorm.DB
	log             *logger.Logger
	scoRepo         repos.ScormScoRepo
	trackingRepo    repos.ScormTrackingRepo
	interactionRepo repos.ScormInteractionRepo
	progressBus     bus.Bus
}

func NewInteractionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scoRepo repos.ScormScoRepo,
	trackingRepo repos.ScormTrackingRepo,
	interactionRepo repos.ScormInteractionRepo,
	progressBus bus.Bus,
) InteractionService {
	serviceLog := baseLog.With("service", "InteractionService")
	if progressBus == nil {
		progressBus = bus.NewLocalBus()
	}
	return &interactionService{
		db:              db,
		log:             serviceLog,
		scoRepo:         scoRepo,
		trackingRepo:    trackingRepo,
		interactionRepo: interactionRepo,
		progressBus:     progressBus,
	}
}

func (s *interactionService) RecordInteraction(ctx context.Context, userID, scoID uuid.UUID, input InteractionInput) (*types.ScormInteraction, error) {
	input.InteractionID = strings.TrimSpace(input.InteractionID)
	if input.InteractionID == "" {
		return nil, scorm.InvalidValue("interaction_id", "", "must not be empty")
	}

	sco, err := s.scoRepo.GetByID(ctx, nil, scoID)
	if err != nil {
		return nil, fmt.Errorf("sco %s not found: %w", scoID, err)
	}
	if !sco.IsLaunchable {
		return nil, scorm.NotLaunchable(sco.Title)
	}

	row := &types.ScormInteraction{
		InteractionID:   input.InteractionID,
		Type:            input.Type,
		Description:     input.Description,
		LearnerResponse: input.LearnerResponse,
		CorrectResponse: input.CorrectResponse,
		Result:          input.Result,
		Weighting:       1,
		LatencySeconds:  input.LatencySeconds,
		Timestamp:       time.Now(),
	}
	if row.Type == "" {
		row.Type = "other"
	}
	if row.Result == "" {
		row.Result = "neutral"
	}
	if input.Weighting != nil {
		row.Weighting = *input.Weighting
	}
	if input.Timestamp != nil {
		row.Timestamp = *input.Timestamp
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, getErr := s.trackingRepo.GetByUserAndSco(ctx, tx, userID, scoID)
		if getErr != nil {
			return getErr
		}
		if t == nil {
			t = newTrackingRecord(userID, scoID)
			if _, createErr := s.trackingRepo.Create(ctx, tx, t); createErr != nil {
				return fmt.Errorf("create tracking record: %w", createErr)
			}
		}

		row.TrackingID = t.ID
		if upErr := s.interactionRepo.Upsert(ctx, tx, row); upErr != nil {
			return fmt.Errorf("upsert interaction: %w", upErr)
		}

		total, correct, cntErr := s.interactionRepo.CountByTrackingID(ctx, tx, t.ID)
		if cntErr != nil {
			return fmt.Errorf("count interactions: %w", cntErr)
		}
		t.InteractionsCount = int(total)
		t.CorrectInteractionsCount = int(correct)
		t.ScorePercentage = nil
		if total > 0 {
			pct := float64(correct) / float64(total) * 100
			t.ScorePercentage = &pct
		}
		now := time.Now()
		t.LastAccessedAt = &now
		return s.trackingRepo.Save(ctx, tx, t)
	}); err != nil {
		return nil, err
	}

	ev := realtime.ProgressEvent{
		Kind:      realtime.EventInteraction,
		UserID:    userID,
		PackageID: sco.PackageID,
		ScoID:     scoID,
		Status:    row.Result,
		At:        time.Now(),
	}
	if pubErr := s.progressBus.Publish(ctx, ev); pubErr != nil {
		s.log.Warn("Failed to publish interaction event", "error", pubErr)
	}

	return row, nil
}

func (s *interactionService) ListInteractions(ctx context.Context, userID, scoID uuid.UUID) ([]*types.ScormInteraction, error) {
	t, err := s.trackingRepo.GetByUserAndSco(ctx, nil, userID, scoID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []*types.ScormInteraction{}, nil
	}
	return s.interactionRepo.ListByTrackingID(ctx, nil, t.ID)
}
