package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/repos"
	"github.com/courseloom/scorm-backend/internal/scorm"
	"github.com/courseloom/scorm-backend/internal/storage"
	"github.com/courseloom/scorm-backend/internal/types"
)

// PackageImportService runs the whole ingestion pipeline: extract the
// archive, parse the manifest, resolve the entry point, persist the
// package with its SCO forest. Failure at any stage rolls back the row
// writes and removes the extracted tree.
type PackageImportService interface {
	ImportPackage(ctx context.Context, zipPath string) (*types.ScormPackage, error)
}

type packageImportService struct {
	db          *gorm.DB
	log         *logger.Logger
	store       storage.Store
	packageRepo repos.ScormPackageRepo
	scoRepo     repos.ScormScoRepo
}

func NewPackageImportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	store storage.Store,
	packageRepo repos.ScormPackageRepo,
	scoRepo repos.ScormScoRepo,
) PackageImportService {
	serviceLog := baseLog.With("service", "PackageImportService")
	return &packageImportService{
		db:          db,
		log:         serviceLog,
		store:       store,
		packageRepo: packageRepo,
		scoRepo:     scoRepo,
	}
}

func (s *packageImportService) ImportPackage(ctx context.Context, zipPath string) (*types.ScormPackage, error) {
	packageID := uuid.New()
	key := "packages/pkg_" + packageID.String()

	pkg, err := s.importInto(ctx, zipPath, packageID, key)
	if err != nil {
		if rmErr := s.store.Remove(key); rmErr != nil {
			s.log.Warn("Failed to clean up package content after failed import", "key", key, "error", rmErr)
		}
		return nil, err
	}
	return pkg, nil
}

func (s *packageImportService) importInto(ctx context.Context, zipPath string, packageID uuid.UUID, key string) (*types.ScormPackage, error) {
	if err := s.store.ExtractZip(ctx, zipPath, key); err != nil {
		return nil, scorm.ManifestInvalid("extract archive: %v", err)
	}

	manifestRel, err := s.store.FindManifest(key)
	if err != nil {
		return nil, scorm.ManifestInvalid("imsmanifest.xml not found in archive")
	}

	// Launch paths in the manifest are relative to the manifest's own
	// directory, so the content root follows it into any wrapper folder.
	contentKey := key
	if dir := path.Dir(manifestRel); dir != "." {
		contentKey = key + "/" + dir
	}

	mf, err := s.store.Open(key, manifestRel)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	doc, parseErr := scorm.ParseManifestXML(mf)
	mf.Close()
	if parseErr != nil {
		return nil, parseErr
	}

	parsed, err := scorm.ParseManifest(doc)
	if err != nil {
		return nil, err
	}

	entryPoint, err := scorm.ResolveEntryPoint(parsed, s.store.Tree(contentKey))
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(map[string]interface{}{
		"default_organization": parsed.DefaultOrganizationID,
		"organization_count":   parsed.OrganizationCount,
		"resource_count":       parsed.ResourceCount,
		"launchable_count":     scorm.CountLaunchable(parsed.Items),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal manifest meta: %w", err)
	}

	pkg := &types.ScormPackage{
		ID:           packageID,
		Title:        parsed.Info.Title,
		Identifier:   parsed.Info.Identifier,
		Version:      string(parsed.Info.Version),
		ContentRoot:  contentKey,
		EntryPoint:   entryPoint,
		ManifestMeta: datatypes.JSON(meta),
	}

	var replacedContentKey string
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, getErr := s.packageRepo.GetByIdentifier(ctx, tx, pkg.Identifier)
		if getErr == nil && existing != nil {
			// Re-import of a known identifier replaces the old package;
			// SCOs and tracking go with it through the cascades.
			replacedContentKey = existing.ContentRoot
			if delErr := s.packageRepo.DeleteByID(ctx, tx, existing.ID); delErr != nil {
				return fmt.Errorf("replace existing package: %w", delErr)
			}
		}

		if _, createErr := s.packageRepo.Create(ctx, tx, pkg); createErr != nil {
			return fmt.Errorf("create package: %w", createErr)
		}

		rows := flattenScoForest(packageID, parsed.Items)
		if _, bulkErr := s.scoRepo.CreateBulk(ctx, tx, rows); bulkErr != nil {
			return fmt.Errorf("create scos: %w", bulkErr)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if replacedContentKey != "" && replacedContentKey != contentKey {
		oldKey := rootKeyOf(replacedContentKey)
		if rmErr := s.store.Remove(oldKey); rmErr != nil {
			s.log.Warn("Failed to remove replaced package content", "key", oldKey, "error", rmErr)
		}
	}

	s.log.Info("Imported SCORM package",
		"package_id", pkg.ID,
		"identifier", pkg.Identifier,
		"version", pkg.Version,
		"entry_point", pkg.EntryPoint)
	return pkg, nil
}

// flattenScoForest assigns IDs up front and emits rows in
// parent-before-child order for the ordered bulk insert.
func flattenScoForest(packageID uuid.UUID, items []*scorm.ScoNode) []*types.ScormSco {
	var rows []*types.ScormSco
	var walk func(nodes []*scorm.ScoNode, parentID *uuid.UUID)
	walk = func(nodes []*scorm.ScoNode, parentID *uuid.UUID) {
		for _, node := range nodes {
			row := &types.ScormSco{
				ID:           uuid.New(),
				PackageID:    packageID,
				Identifier:   node.Identifier,
				Title:        node.Title,
				IsLaunchable: node.Launchable,
				SortOrder:    node.SortOrder,
				ParentID:     parentID,
			}
			if node.LaunchPath != "" {
				lp := node.LaunchPath
				row.LaunchPath = &lp
			}
			rows = append(rows, row)
			walk(node.Children, &row.ID)
		}
	}
	walk(items, nil)
	return rows
}

// rootKeyOf strips a nested manifest directory back to the package's
// top-level content key (packages/pkg_<id>).
func rootKeyOf(contentKey string) string {
	parts := strings.SplitN(contentKey, "/", 3)
	if len(parts) < 2 {
		return contentKey
	}
	return parts[0] + "/" + parts[1]
}
