package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/types"
)

type ScormInteractionRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.ScormInteraction) error
	ListByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) ([]*types.ScormInteraction, error)
	CountByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) (total int64, correct int64, err error)
}

type scormInteractionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScormInteractionRepo(db *gorm.DB, baseLog *logger.Logger) ScormInteractionRepo {
	repoLog := baseLog.With("repo", "ScormInteractionRepo")
	return &scormInteractionRepo{db: db, log: repoLog}
}

// Upsert by unique tracking_id + interaction_id so repeated reports for
// the same question replace rather than duplicate.
func (r *scormInteractionRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.ScormInteraction) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("tracking_id = ? AND interaction_id = ?", row.TrackingID, row.InteractionID).
		Assign(map[string]interface{}{
			"type":             row.Type,
			"description":      row.Description,
			"learner_response": row.LearnerResponse,
			"correct_response": row.CorrectResponse,
			"result":           row.Result,
			"weighting":        row.Weighting,
			"latency_seconds":  row.LatencySeconds,
			"timestamp":        row.Timestamp,
		}).
		FirstOrCreate(row).Error
}

func (r *scormInteractionRepo) ListByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) ([]*types.ScormInteraction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScormInteraction
	if err := transaction.WithContext(ctx).
		Where("tracking_id = ?", trackingID).
		Order("timestamp ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scormInteractionRepo) CountByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) (int64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.ScormInteraction{}).
		Where("tracking_id = ?", trackingID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	var correct int64
	if err := transaction.WithContext(ctx).
		Model(&types.ScormInteraction{}).
		Where("tracking_id = ? AND result = ?", trackingID, "correct").
		Count(&correct).Error; err != nil {
		return 0, 0, err
	}
	return total, correct, nil
}
