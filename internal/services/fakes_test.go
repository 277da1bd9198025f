package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/realtime"
	"github.com/courseloom/scorm-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// In-memory repo stand-ins. The services talk to the repo interfaces
// only, so the engine logic can be exercised without a database.

type fakePackageRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.ScormPackage
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{rows: map[uuid.UUID]*types.ScormPackage{}}
}

func (f *fakePackageRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ScormPackage) (*types.ScormPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakePackageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakePackageRepo) GetByIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.ScormPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Identifier == identifier {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePackageRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.ScormPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ScormPackage
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakePackageRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeScoRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.ScormSco
}

func newFakeScoRepo() *fakeScoRepo {
	return &fakeScoRepo{rows: map[uuid.UUID]*types.ScormSco{}}
}

func (f *fakeScoRepo) CreateBulk(ctx context.Context, tx *gorm.DB, rows []*types.ScormSco) ([]*types.ScormSco, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.rows[row.ID] = row
	}
	return rows, nil
}

func (f *fakeScoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormSco, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeScoRepo) byPackage(packageID uuid.UUID, launchableOnly bool) []*types.ScormSco {
	var out []*types.ScormSco
	for _, row := range f.rows {
		if row.PackageID != packageID {
			continue
		}
		if launchableOnly && !row.IsLaunchable {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (f *fakeScoRepo) GetByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPackage(packageID, false), nil
}

func (f *fakeScoRepo) GetLaunchableByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) ([]*types.ScormSco, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPackage(packageID, true), nil
}

func (f *fakeScoRepo) DeleteByPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.PackageID == packageID {
			delete(f.rows, id)
		}
	}
	return nil
}

type fakeTrackingRepo struct {
	mu   sync.Mutex
	rows map[string]*types.ScormTracking
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{rows: map[string]*types.ScormTracking{}}
}

func trackingKey(userID, scoID uuid.UUID) string {
	return userID.String() + "|" + scoID.String()
}

func (f *fakeTrackingRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) (*types.ScormTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[trackingKey(row.UserID, row.ScoID)] = row
	return row, nil
}

func (f *fakeTrackingRepo) GetByUserAndSco(ctx context.Context, tx *gorm.DB, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[trackingKey(userID, scoID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeTrackingRepo) GetByUserAndScoIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, scoIDs []uuid.UUID) ([]*types.ScormTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ScormTracking
	for _, scoID := range scoIDs {
		if row, ok := f.rows[trackingKey(userID, scoID)]; ok {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeTrackingRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ScormTracking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *row
	f.rows[trackingKey(row.UserID, row.ScoID)] = &copied
	return nil
}

func (f *fakeTrackingRepo) DeleteByScoIDs(ctx context.Context, tx *gorm.DB, scoIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, row := range f.rows {
		for _, scoID := range scoIDs {
			if row.ScoID == scoID {
				delete(f.rows, key)
			}
		}
	}
	return nil
}

type fakeInteractionRepo struct {
	mu   sync.Mutex
	rows map[string]*types.ScormInteraction
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{rows: map[string]*types.ScormInteraction{}}
}

func interactionKey(trackingID uuid.UUID, interactionID string) string {
	return trackingID.String() + "|" + interactionID
}

func (f *fakeInteractionRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.ScormInteraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := interactionKey(row.TrackingID, row.InteractionID)
	if existing, ok := f.rows[key]; ok {
		row.ID = existing.ID
	} else if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	copied := *row
	f.rows[key] = &copied
	return nil
}

func (f *fakeInteractionRepo) ListByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) ([]*types.ScormInteraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ScormInteraction
	for _, row := range f.rows {
		if row.TrackingID == trackingID {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeInteractionRepo) CountByTrackingID(ctx context.Context, tx *gorm.DB, trackingID uuid.UUID) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, correct int64
	for _, row := range f.rows {
		if row.TrackingID != trackingID {
			continue
		}
		total++
		if row.Result == "correct" {
			correct++
		}
	}
	return total, correct, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []realtime.ProgressEvent
}

func (b *captureBus) Publish(ctx context.Context, ev realtime.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *captureBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.ProgressEvent)) error {
	return nil
}

func (b *captureBus) Close() error { return nil }

func (b *captureBus) kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Kind)
	}
	return out
}
