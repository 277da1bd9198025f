package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/types"
)

type ScormTrackingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) (*types.ScormTracking, error)
	GetByUserAndSco(ctx context.Context, tx *gorm.DB, userID, scoID uuid.UUID) (*types.ScormTracking, error)
	GetByUserAndScoIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, scoIDs []uuid.UUID) ([]*types.ScormTracking, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) error
	DeleteByScoIDs(ctx context.Context, tx *gorm.DB, scoIDs []uuid.UUID) error
}

type scormTrackingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScormTrackingRepo(db *gorm.DB, baseLog *logger.Logger) ScormTrackingRepo {
	repoLog := baseLog.With("repo", "ScormTrackingRepo")
	return &scormTrackingRepo{db: db, log: repoLog}
}

func (r *scormTrackingRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) (*types.ScormTracking, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByUserAndSco returns (nil, nil) when no record exists yet; the
// engine creates records lazily.
func (r *scormTrackingRepo) GetByUserAndSco(ctx context.Context, tx *gorm.DB, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ScormTracking
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND sco_id = ?", userID, scoID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *scormTrackingRepo) GetByUserAndScoIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, scoIDs []uuid.UUID) ([]*types.ScormTracking, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScormTracking
	if userID == uuid.Nil || len(scoIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND sco_id IN ?", userID, scoIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scormTrackingRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *scormTrackingRepo) DeleteByScoIDs(ctx context.Context, tx *gorm.DB, scoIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(scoIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("sco_id IN ?", scoIDs).
		Delete(&types.ScormTracking{}).Error
}
