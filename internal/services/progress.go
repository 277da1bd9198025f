package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/apierr"
	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/types"
)

type ScoProgress struct {
	Sco      *types.ScormSco      `json:"sco"`
	Tracking *types.ScormTracking `json:"tracking,omitempty"`
}

type PackageProgress struct {
	PackageID      uuid.UUID     `json:"package_id"`
	ScoCount       int           `json:"sco_count"`
	CompletedCount int           `json:"completed_count"`
	Percentage     float64       `json:"percentage"`
	Scos           []ScoProgress `json:"scos"`
}

// ProgressService aggregates one learner's runtime records across a
// package's launchable SCOs for reporting.
type ProgressService interface {
	GetPackageProgress(ctx context.Context, userID, packageID uuid.UUID) (*PackageProgress, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	packageRepo  repos.ScormPackageRepo
	scoRepo      repos.ScormScoRepo
	trackingRepo repos.ScormTrackingRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	packageRepo repos.ScormPackageRepo,
	scoRepo repos.ScormScoRepo,
	trackingRepo repos.ScormTrackingRepo,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:           db,
		log:          serviceLog,
		packageRepo:  packageRepo,
		scoRepo:      scoRepo,
		trackingRepo: trackingRepo,
	}
}

func (s *progressService) GetPackageProgress(ctx context.Context, userID, packageID uuid.UUID) (*PackageProgress, error) {
	if _, err := s.packageRepo.GetByID(ctx, nil, packageID); err != nil {
		return nil, apierr.Errorf(404, "package_not_found", "package %s not found", packageID)
	}

	scos, err := s.scoRepo.GetLaunchableByPackageID(ctx, nil, packageID)
	if err != nil {
		return nil, fmt.Errorf("load scos: %w", err)
	}

	scoIDs := make([]uuid.UUID, 0, len(scos))
	for _, sco := range scos {
		scoIDs = append(scoIDs, sco.ID)
	}
	trackings, err := s.trackingRepo.GetByUserAndScoIDs(ctx, nil, userID, scoIDs)
	if err != nil {
		return nil, fmt.Errorf("load tracking records: %w", err)
	}
	byScoID := make(map[uuid.UUID]*types.ScormTracking, len(trackings))
	for _, t := range trackings {
		byScoID[t.ScoID] = t
	}

	result := &PackageProgress{
		PackageID: packageID,
		ScoCount:  len(scos),
		Scos:      make([]ScoProgress, 0, len(scos)),
	}
	for _, sco := range scos {
		t := byScoID[sco.ID]
		if t != nil && isCompleted(t) {
			result.CompletedCount++
		}
		result.Scos = append(result.Scos, ScoProgress{Sco: sco, Tracking: t})
	}
	if result.ScoCount > 0 {
		result.Percentage = float64(result.CompletedCount) / float64(result.ScoCount) * 100
	}
	return result, nil
}

// A SCO counts as completed under either vocabulary.
func isCompleted(t *types.ScormTracking) bool {
	switch t.LessonStatus {
	case "passed", "completed":
		return true
	}
	return t.CompletionStatus == "completed"
}
