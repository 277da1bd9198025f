package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/types"
)

type ScormPackageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ScormPackage) (*types.ScormPackage, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormPackage, error)
	GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.ScormPackage, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.ScormPackage, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type scormPackageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScormPackageRepo(db *gorm.DB, baseLog *logger.Logger) ScormPackageRepo {
	repoLog := baseLog.With("repo", "ScormPackageRepo")
	return &scormPackageRepo{db: db, log: repoLog}
}

func (r *scormPackageRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ScormPackage) (*types.ScormPackage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *scormPackageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormPackage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ScormPackage
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scormPackageRepo) GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.ScormPackage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ScormPackage
	if err := transaction.WithContext(ctx).
		Where("identifier = ?", identifier).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scormPackageRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.ScormPackage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ScormPackage
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scormPackageRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ScormPackage{}).Error
}
