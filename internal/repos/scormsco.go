package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/types"
)

type ScormScoRepo interface {
	CreateBulk(ctx context.Context, tx *gorm.DB, rows []*types.ScormSco) ([]*types.ScormSco, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormSco, error)
	GetByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error)
	GetLaunchableByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error)
	DeleteByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) error
}

type scormScoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScormScoRepo(db *gorm.DB, baseLog *logger.Logger) ScormScoRepo {
	repoLog := baseLog.With("repo", "ScormScoRepo")
	return &scormScoRepo{db: db, log: repoLog}
}

func (r *scormScoRepo) CreateBulk(ctx context.Context, tx *gorm.DB, rows []*types.ScormSco) ([]*types.ScormSco, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ScormSco{}, nil
	}
	// Rows arrive parent-before-child from the manifest walk; a plain
	// ordered insert keeps the self-FK satisfied.
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scormScoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormSco, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ScormSco
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scormScoRepo) GetByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScormSco
	if err := transaction.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("sort_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scormScoRepo) GetLaunchableByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScormSco
	if err := transaction.WithContext(ctx).
		Where("package_id = ? AND is_launchable = ?", packageID, true).
		Order("sort_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scormScoRepo) DeleteByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("package_id = ?", packageID).
		Delete(&types.ScormSco{}).Error
}
