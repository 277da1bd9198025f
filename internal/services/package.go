package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/apierr"
	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/storage"
	"github.com/courseloom/scorm-backend/internal/types"
)

type PackageOutline struct {
	Package *types.ScormPackage `json:"package"`
	Items   []*types.ScormSco   `json:"items"`
}

type PackageService interface {
	ListPackages(ctx context.Context) ([]*types.ScormPackage, error)
	GetPackage(ctx context.Context, packageID uuid.UUID) (*types.ScormPackage, error)
	GetOutline(ctx context.Context, packageID uuid.UUID) (*PackageOutline, error)
	DeletePackage(ctx context.Context, packageID uuid.UUID) error
	ContentFilePath(ctx context.Context, packageID uuid.UUID, relPath string) (string, error)
}

type packageService struct {
	db          *gorm.DB
	log         *logger.Logger
	store       storage.Store
	packageRepo repos.ScormPackageRepo
	scoRepo     repos.ScormScoRepo
}

func NewPackageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store storage.Store,
	packageRepo repos.ScormPackageRepo,
	scoRepo repos.ScormScoRepo,
) PackageService {
	serviceLog := baseLog.With("service", "PackageService")
	return &packageService{
		db:          db,
		log:         serviceLog,
		store:       store,
		packageRepo: packageRepo,
		scoRepo:     scoRepo,
	}
}

func (s *packageService) ListPackages(ctx context.Context) ([]*types.ScormPackage, error) {
	return s.packageRepo.List(ctx, nil)
}

func (s *packageService) GetPackage(ctx context.Context, packageID uuid.UUID) (*types.ScormPackage, error) {
	pkg, err := s.packageRepo.GetByID(ctx, nil, packageID)
	if err != nil {
		return nil, apierr.Errorf(404, "package_not_found", "package %s not found", packageID)
	}
	return pkg, nil
}

func (s *packageService) GetOutline(ctx context.Context, packageID uuid.UUID) (*PackageOutline, error) {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	rows, err := s.scoRepo.GetByPackageID(ctx, nil, packageID)
	if err != nil {
		return nil, fmt.Errorf("load scos: %w", err)
	}
	return &PackageOutline{Package: pkg, Items: assembleScoTree(rows)}, nil
}

func (s *packageService) DeletePackage(ctx context.Context, packageID uuid.UUID) error {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return err
	}
	if err := s.packageRepo.DeleteByID(ctx, nil, packageID); err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	key := rootKeyOf(pkg.ContentRoot)
	if rmErr := s.store.Remove(key); rmErr != nil {
		s.log.Warn("Failed to remove package content", "key", key, "error", rmErr)
	}
	s.log.Info("Deleted SCORM package", "package_id", packageID, "identifier", pkg.Identifier)
	return nil
}

func (s *packageService) ContentFilePath(ctx context.Context, packageID uuid.UUID, relPath string) (string, error) {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return "", err
	}
	full, err := s.store.AbsPath(pkg.ContentRoot, relPath)
	if err != nil {
		return "", apierr.Errorf(404, "file_not_found", "file %s not found in package", relPath)
	}
	return full, nil
}

// assembleScoTree rebuilds the forest from flat rows: children hang off
// their parent, siblings sorted by manifest order.
func assembleScoTree(rows []*types.ScormSco) []*types.ScormSco {
	byID := make(map[uuid.UUID]*types.ScormSco, len(rows))
	for _, row := range rows {
		row.Children = nil
		byID[row.ID] = row
	}
	var roots []*types.ScormSco
	for _, row := range rows {
		if row.ParentID != nil {
			if parent, ok := byID[*row.ParentID]; ok {
				parent.Children = append(parent.Children, row)
				continue
			}
		}
		roots = append(roots, row)
	}
	var sortLevel func(nodes []*types.ScormSco)
	sortLevel = func(nodes []*types.ScormSco) {
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].SortOrder < nodes[j].SortOrder
		})
		for _, n := range nodes {
			sortLevel(n.Children)
		}
	}
	sortLevel(roots)
	return roots
}
