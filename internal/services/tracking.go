package services

import (
	"context"
	"fmt"
	"sync"
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

// TrackingService is the runtime engine behind the SCO-facing API:
// Initialize, GetValue, SetValue, Commit, Terminate. Writes are
// serialized per (user, SCO) so a misbehaving player cannot interleave
// two sessions into one record.
type TrackingService interface {
	Initialize(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error)
	GetValue(ctx context.Context, userID, scoID uuid.UUID, element string) (string, error)
	SetValue(ctx context.Context, userID, scoID uuid.UUID, element, value string) error
	Commit(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error)
	Terminate(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error)
}

type trackingService struct {
	db           *gorm.DB
	log          *logger.Logger
	scoRepo      repos.ScormScoRepo
	packageRepo  repos.ScormPackageRepo
	trackingRepo repos.ScormTrackingRepo
	progressBus  bus.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTrackingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scoRepo repos.ScormScoRepo,
	packageRepo repos.ScormPackageRepo,
	trackingRepo repos.ScormTrackingRepo,
	progressBus bus.Bus,
) TrackingService {
	serviceLog := baseLog.With("service", "TrackingService")
	if progressBus == nil {
		progressBus = bus.NewLocalBus()
	}
	return &trackingService{
		db:           db,
		log:          serviceLog,
		scoRepo:      scoRepo,
		packageRepo:  packageRepo,
		trackingRepo: trackingRepo,
		progressBus:  progressBus,
		locks:        map[string]*sync.Mutex{},
	}
}

// lockFor returns the mutex serializing one learner on one SCO.
func (s *trackingService) lockFor(userID, scoID uuid.UUID) *sync.Mutex {
	key := userID.String() + "|" + scoID.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

func (s *trackingService) loadSco(ctx context.Context, scoID uuid.UUID) (*types.ScormSco, *types.ScormPackage, error) {
	sco, err := s.scoRepo.GetByID(ctx, nil, scoID)
	if err != nil {
		return nil, nil, fmt.Errorf("sco %s not found: %w", scoID, err)
	}
	pkg, err := s.packageRepo.GetByID(ctx, nil, sco.PackageID)
	if err != nil {
		return nil, nil, fmt.Errorf("package %s not found: %w", sco.PackageID, err)
	}
	return sco, pkg, nil
}

func newTrackingRecord(userID, scoID uuid.UUID) *types.ScormTracking {
	return &types.ScormTracking{
		ID:               uuid.New(),
		UserID:           userID,
		ScoID:            scoID,
		LessonStatus:     "not attempted",
		Entry:            "ab-initio",
		CompletionStatus: "unknown",
		SuccessStatus:    "unknown",
	}
}

// loadOrCreate fetches the tracking record, creating a fresh one when
// the learner touches the SCO for the first time. Runtime calls that
// arrive before Initialize still get a record to work against.
func (s *trackingService) loadOrCreate(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	t, err := s.trackingRepo.GetByUserAndSco(ctx, nil, userID, scoID)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	t = newTrackingRecord(userID, scoID)
	if _, err := s.trackingRepo.Create(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("create tracking record: %w", err)
	}
	return t, nil
}

func (s *trackingService) Initialize(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	lock := s.lockFor(userID, scoID)
	lock.Lock()
	defer lock.Unlock()

	sco, pkg, err := s.loadSco(ctx, scoID)
	if err != nil {
		return nil, err
	}
	if !sco.IsLaunchable {
		return nil, scorm.NotLaunchable(sco.Title)
	}

	t, err := s.loadOrCreate(ctx, userID, scoID)
	if err != nil {
		return nil, err
	}

	// A learner with any prior attempt resumes; only a record that was
	// never attempted starts from the top.
	if t.LessonStatus != "not attempted" {
		t.Entry = "resume"
	} else {
		t.Entry = "ab-initio"
	}
	t.SessionTimeSeconds = 0
	t.Exit = ""
	now := time.Now()
	t.LastAccessedAt = &now

	if err := s.trackingRepo.Save(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("save tracking record: %w", err)
	}

	s.publish(ctx, realtime.EventInitialized, userID, pkg.ID, scoID, t.LessonStatus)
	s.log.Debug("Session initialized", "user_id", userID, "sco_id", scoID, "entry", t.Entry)
	return t, nil
}

// GetValue never fails on an unrecognized element: unknown reads answer
// the empty string so content written against a newer data model keeps
// running.
func (s *trackingService) GetValue(ctx context.Context, userID, scoID uuid.UUID, element string) (string, error) {
	_, pkg, err := s.loadSco(ctx, scoID)
	if err != nil {
		return "", err
	}

	t, err := s.trackingRepo.GetByUserAndSco(ctx, nil, userID, scoID)
	if err != nil {
		return "", err
	}
	if t == nil {
		// Reads before the first write see defaults without persisting.
		t = newTrackingRecord(userID, scoID)
	}

	spec, ok := scorm.ElementTable(scorm.Version(pkg.Version))[element]
	if !ok {
		return "", nil
	}
	return spec.Get(t), nil
}

func (s *trackingService) SetValue(ctx context.Context, userID, scoID uuid.UUID, element, value string) error {
	lock := s.lockFor(userID, scoID)
	lock.Lock()
	defer lock.Unlock()

	sco, pkg, err := s.loadSco(ctx, scoID)
	if err != nil {
		return err
	}
	if !sco.IsLaunchable {
		return scorm.NotLaunchable(sco.Title)
	}

	// cmi.interactions.* belongs to the interaction recorder; answer
	// success so players that mirror interactions here keep working.
	if scorm.IsInteractionElement(element) {
		return nil
	}

	spec, ok := scorm.ElementTable(scorm.Version(pkg.Version))[element]
	if !ok {
		s.log.Debug("Ignoring unknown CMI element", "element", element)
		return nil
	}
	if spec.Set == nil {
		return scorm.InvalidValue(element, value, "element is read-only")
	}

	t, err := s.loadOrCreate(ctx, userID, scoID)
	if err != nil {
		return err
	}
	if err := spec.Set(t, value); err != nil {
		return err
	}
	now := time.Now()
	t.LastAccessedAt = &now
	if err := s.trackingRepo.Save(ctx, nil, t); err != nil {
		return fmt.Errorf("save tracking record: %w", err)
	}
	return nil
}

// Commit acknowledges the player's flush request. Every SetValue is
// already persisted synchronously, so this refreshes the access stamp
// and reports current state.
func (s *trackingService) Commit(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	lock := s.lockFor(userID, scoID)
	lock.Lock()
	defer lock.Unlock()

	sco, pkg, err := s.loadSco(ctx, scoID)
	if err != nil {
		return nil, err
	}
	if !sco.IsLaunchable {
		return nil, scorm.NotLaunchable(sco.Title)
	}
	t, err := s.loadOrCreate(ctx, userID, scoID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	t.LastAccessedAt = &now
	if err := s.trackingRepo.Save(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("save tracking record: %w", err)
	}
	s.publish(ctx, realtime.EventCommitted, userID, pkg.ID, scoID, t.LessonStatus)
	return t, nil
}

func (s *trackingService) Terminate(ctx context.Context, userID, scoID uuid.UUID) (*types.ScormTracking, error) {
	lock := s.lockFor(userID, scoID)
	lock.Lock()
	defer lock.Unlock()

	sco, pkg, err := s.loadSco(ctx, scoID)
	if err != nil {
		return nil, err
	}
	if !sco.IsLaunchable {
		return nil, scorm.NotLaunchable(sco.Title)
	}
	t, err := s.loadOrCreate(ctx, userID, scoID)
	if err != nil {
		return nil, err
	}

	t.TotalTimeSeconds += t.SessionTimeSeconds
	t.SessionTimeSeconds = 0
	if t.Exit == "" {
		t.Exit = "normal"
	}
	scorm.SyncStatus(t)
	now := time.Now()
	t.LastAccessedAt = &now

	if err := s.trackingRepo.Save(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("save tracking record: %w", err)
	}

	s.publish(ctx, realtime.EventTerminated, userID, pkg.ID, scoID, t.LessonStatus)
	s.log.Debug("Session terminated",
		"user_id", userID,
		"sco_id", scoID,
		"lesson_status", t.LessonStatus,
		"total_time_seconds", t.TotalTimeSeconds)
	return t, nil
}

func (s *trackingService) publish(ctx context.Context, kind string, userID, packageID, scoID uuid.UUID, status string) {
	ev := realtime.ProgressEvent{
		Kind:      kind,
		UserID:    userID,
		PackageID: packageID,
		ScoID:     scoID,
		Status:    status,
		At:        time.Now(),
	}
	if err := s.progressBus.Publish(ctx, ev); err != nil {
		s.log.Warn("Failed to publish progress event", "kind", kind, "error", err)
	}
}
