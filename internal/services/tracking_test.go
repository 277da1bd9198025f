package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/courseloom/scorm-backend/internal/scorm"
	"github.com/courseloom/scorm-backend/internal/types"
)

type trackingFixture struct {
	svc          TrackingService
	trackingRepo *fakeTrackingRepo
	bus          *captureBus
	userID       uuid.UUID
	packageID    uuid.UUID
	scoID        uuid.UUID
	containerID  uuid.UUID
}

func newTrackingFixture(t *testing.T, version string) *trackingFixture {
	t.Helper()
	log := testLogger(t)

	packageRepo := newFakePackageRepo()
	scoRepo := newFakeScoRepo()
	trackingRepo := newFakeTrackingRepo()
	progressBus := &captureBus{}

	packageID := uuid.New()
	_, _ = packageRepo.Create(context.Background(), nil, &types.ScormPackage{
		ID:         packageID,
		Title:      "Test Course",
		Identifier: "test-course",
		Version:    version,
	})

	launchPath := "sco/index.html"
	scoID := uuid.New()
	containerID := uuid.New()
	_, _ = scoRepo.CreateBulk(context.Background(), nil, []*types.ScormSco{
		{ID: containerID, PackageID: packageID, Identifier: "container", Title: "Container"},
		{ID: scoID, PackageID: packageID, Identifier: "sco-1", Title: "Lesson", LaunchPath: &launchPath, IsLaunchable: true, ParentID: &containerID},
	})

	svc := NewTrackingService(nil, log, scoRepo, packageRepo, trackingRepo, progressBus)
	return &trackingFixture{
		svc:          svc,
		trackingRepo: trackingRepo,
		bus:          progressBus,
		userID:       uuid.New(),
		packageID:    packageID,
		scoID:        scoID,
		containerID:  containerID,
	}
}

func TestInitializeCreatesFreshRecord(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	tr, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if tr.Entry != "ab-initio" {
		t.Errorf("entry = %q, want ab-initio", tr.Entry)
	}
	if tr.LessonStatus != "not attempted" {
		t.Errorf("lesson_status = %q", tr.LessonStatus)
	}
	if tr.LastAccessedAt == nil {
		t.Error("last_accessed_at not stamped")
	}
	if kinds := fx.bus.kinds(); len(kinds) != 1 || kinds[0] != "initialized" {
		t.Errorf("events = %v", kinds)
	}
}

func TestInitializeRejectsNonLaunchable(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	_, err := fx.svc.Initialize(context.Background(), fx.userID, fx.containerID)
	if !scorm.IsCode(err, scorm.CodeNotLaunchable) {
		t.Fatalf("expected not_launchable, got %v", err)
	}
}

func TestSuspendResumeCycle(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.lesson_status", "incomplete"); err != nil {
		t.Fatalf("SetValue lesson_status: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.exit", "suspend"); err != nil {
		t.Fatalf("SetValue exit: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.suspend_data", "bookmark=page3"); err != nil {
		t.Fatalf("SetValue suspend_data: %v", err)
	}
	if _, err := fx.svc.Terminate(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	tr, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if tr.Entry != "resume" {
		t.Errorf("entry after suspend = %q, want resume", tr.Entry)
	}
	if got, _ := fx.svc.GetValue(ctx, fx.userID, fx.scoID, "cmi.suspend_data"); got != "bookmark=page3" {
		t.Errorf("suspend_data = %q", got)
	}

	// a normal exit also resumes once the SCO has been attempted
	if _, err := fx.svc.Terminate(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	tr, err = fx.svc.Initialize(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("third Initialize: %v", err)
	}
	if tr.Entry != "resume" {
		t.Errorf("entry after normal exit = %q, want resume", tr.Entry)
	}
}

// Entry depends only on whether the record carries a prior attempt: a
// never-attempted record starts ab-initio, any recorded status resumes.
func TestReinitializeEntryFollowsAttemptState(t *testing.T) {
	ctx := context.Background()

	t.Run("no attempt stays ab-initio", func(t *testing.T) {
		fx := newTrackingFixture(t, "1.2")
		if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if _, err := fx.svc.Terminate(ctx, fx.userID, fx.scoID); err != nil {
			t.Fatalf("Terminate: %v", err)
		}
		tr, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID)
		if err != nil {
			t.Fatalf("second Initialize: %v", err)
		}
		if tr.Entry != "ab-initio" {
			t.Errorf("entry = %q, want ab-initio", tr.Entry)
		}
	})

	for _, status := range []string{"incomplete", "completed", "passed", "failed", "browsed"} {
		t.Run(status, func(t *testing.T) {
			fx := newTrackingFixture(t, "1.2")
			if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.lesson_status", status); err != nil {
				t.Fatalf("SetValue lesson_status: %v", err)
			}
			tr, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID)
			if err != nil {
				t.Fatalf("second Initialize: %v", err)
			}
			if tr.Entry != "resume" {
				t.Errorf("entry after re-Initialize with status %q = %q, want resume", status, tr.Entry)
			}
		})
	}
}

func TestRuntimeCallsRejectNonLaunchable(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	calls := []struct {
		name string
		call func() error
	}{
		{"SetValue", func() error {
			return fx.svc.SetValue(ctx, fx.userID, fx.containerID, "cmi.core.lesson_status", "completed")
		}},
		{"Commit", func() error {
			_, err := fx.svc.Commit(ctx, fx.userID, fx.containerID)
			return err
		}},
		{"Terminate", func() error {
			_, err := fx.svc.Terminate(ctx, fx.userID, fx.containerID)
			return err
		}},
	}
	for _, tc := range calls {
		if err := tc.call(); !scorm.IsCode(err, scorm.CodeNotLaunchable) {
			t.Errorf("%s on container: expected not_launchable, got %v", tc.name, err)
		}
	}
	if row, _ := fx.trackingRepo.GetByUserAndSco(ctx, nil, fx.userID, fx.containerID); row != nil {
		t.Error("container must not acquire a tracking record")
	}
}

func TestGetValueBeforeInitializeDoesNotPersist(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	got, err := fx.svc.GetValue(ctx, fx.userID, fx.scoID, "cmi.core.lesson_status")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if got != "not attempted" {
		t.Errorf("default lesson_status = %q", got)
	}
	if row, _ := fx.trackingRepo.GetByUserAndSco(ctx, nil, fx.userID, fx.scoID); row != nil {
		t.Error("read must not create a record")
	}
}

func TestSetValuePersistsAndMirrors(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.lesson_status", "passed"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	row, _ := fx.trackingRepo.GetByUserAndSco(ctx, nil, fx.userID, fx.scoID)
	if row == nil {
		t.Fatal("write must create a record")
	}
	if row.LessonStatus != "passed" || row.CompletionStatus != "completed" || row.SuccessStatus != "passed" {
		t.Errorf("statuses = %q/%q/%q", row.LessonStatus, row.CompletionStatus, row.SuccessStatus)
	}
}

func TestSetValueRejections(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.score.raw", "150"); !scorm.IsCode(err, scorm.CodeInvalidValue) {
		t.Errorf("score 150: expected invalid_value, got %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.entry", "resume"); !scorm.IsCode(err, scorm.CodeInvalidValue) {
		t.Errorf("read-only write: expected invalid_value, got %v", err)
	}

	// unknown elements and the interactions subtree answer success
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.learner_preference.language", "en"); err != nil {
		t.Errorf("unknown element: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.interactions.0.result", "correct"); err != nil {
		t.Errorf("interactions element: %v", err)
	}
}

func TestTerminateFoldsSessionTime(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.session_time", "00:30:00"); err != nil {
		t.Fatalf("SetValue session_time: %v", err)
	}
	tr, err := fx.svc.Terminate(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if tr.TotalTimeSeconds != 1800 || tr.SessionTimeSeconds != 0 {
		t.Errorf("times = total %d / session %d", tr.TotalTimeSeconds, tr.SessionTimeSeconds)
	}
	if tr.Exit != "normal" {
		t.Errorf("exit = %q, want normal", tr.Exit)
	}

	// a second session accumulates
	if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.core.session_time", "00:15:00"); err != nil {
		t.Fatalf("SetValue session_time: %v", err)
	}
	tr, err = fx.svc.Terminate(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
	if tr.TotalTimeSeconds != 2700 {
		t.Errorf("accumulated total = %d, want 2700", tr.TotalTimeSeconds)
	}
	if got, _ := fx.svc.GetValue(ctx, fx.userID, fx.scoID, "cmi.core.total_time"); got != "00:45:00" {
		t.Errorf("total_time = %q", got)
	}
}

func TestTracking2004Elements(t *testing.T) {
	fx := newTrackingFixture(t, "2004 3rd Edition")
	ctx := context.Background()

	if _, err := fx.svc.Initialize(ctx, fx.userID, fx.scoID); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.completion_status", "completed"); err != nil {
		t.Fatalf("SetValue completion: %v", err)
	}
	if err := fx.svc.SetValue(ctx, fx.userID, fx.scoID, "cmi.session_time", "PT20M"); err != nil {
		t.Fatalf("SetValue session_time: %v", err)
	}
	// 1.2 vocabulary is not visible under 2004
	if got, _ := fx.svc.GetValue(ctx, fx.userID, fx.scoID, "cmi.core.lesson_status"); got != "" {
		t.Errorf("1.2 element under 2004 = %q, want empty", got)
	}
	tr, err := fx.svc.Terminate(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if tr.TotalTimeSeconds != 1200 {
		t.Errorf("total = %d", tr.TotalTimeSeconds)
	}
	// mirrored 1.2 view stays consistent
	if tr.LessonStatus != "completed" {
		t.Errorf("mirrored lesson_status = %q", tr.LessonStatus)
	}
	if got, _ := fx.svc.GetValue(ctx, fx.userID, fx.scoID, "cmi.total_time"); got != "PT0H20M0S" {
		t.Errorf("total_time = %q", got)
	}
}

func TestCommitStampsAccess(t *testing.T) {
	fx := newTrackingFixture(t, "1.2")
	ctx := context.Background()

	tr, err := fx.svc.Commit(ctx, fx.userID, fx.scoID)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tr.LastAccessedAt == nil {
		t.Error("commit must stamp last_accessed_at")
	}
	if kinds := fx.bus.kinds(); len(kinds) != 1 || kinds[0] != "committed" {
		t.Errorf("events = %v", kinds)
	}
}
