package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/courseloom/scorm-backend/internal/types"
)

func TestAssembleScoTree(t *testing.T) {
	rootA := &types.ScormSco{ID: uuid.New(), Identifier: "a", SortOrder: 1}
	rootB := &types.ScormSco{ID: uuid.New(), Identifier: "b", SortOrder: 0}
	childA1 := &types.ScormSco{ID: uuid.New(), Identifier: "a1", SortOrder: 1, ParentID: &rootA.ID}
	childA0 := &types.ScormSco{ID: uuid.New(), Identifier: "a0", SortOrder: 0, ParentID: &rootA.ID}
	orphan := &types.ScormSco{ID: uuid.New(), Identifier: "orphan", SortOrder: 2}
	missing := uuid.New()
	danglingParent := &types.ScormSco{ID: uuid.New(), Identifier: "dangling", SortOrder: 3, ParentID: &missing}

	roots := assembleScoTree([]*types.ScormSco{rootA, childA1, orphan, rootB, childA0, danglingParent})

	if len(roots) != 4 {
		t.Fatalf("expected 4 roots, got %d", len(roots))
	}
	// siblings come back in manifest order
	if roots[0].Identifier != "b" || roots[1].Identifier != "a" {
		t.Errorf("root order = %q, %q", roots[0].Identifier, roots[1].Identifier)
	}
	a := roots[1]
	if len(a.Children) != 2 {
		t.Fatalf("expected 2 children under a, got %d", len(a.Children))
	}
	if a.Children[0].Identifier != "a0" || a.Children[1].Identifier != "a1" {
		t.Errorf("child order = %q, %q", a.Children[0].Identifier, a.Children[1].Identifier)
	}
}

func TestGetPackageProgress(t *testing.T) {
	log := testLogger(t)
	packageRepo := newFakePackageRepo()
	scoRepo := newFakeScoRepo()
	trackingRepo := newFakeTrackingRepo()
	svc := NewProgressService(nil, log, packageRepo, scoRepo, trackingRepo)

	ctx := context.Background()
	userID := uuid.New()
	packageID := uuid.New()
	_, _ = packageRepo.Create(ctx, nil, &types.ScormPackage{ID: packageID, Identifier: "p", Version: "1.2"})

	lp := "x.html"
	sco1 := &types.ScormSco{ID: uuid.New(), PackageID: packageID, Identifier: "s1", SortOrder: 0, LaunchPath: &lp, IsLaunchable: true}
	sco2 := &types.ScormSco{ID: uuid.New(), PackageID: packageID, Identifier: "s2", SortOrder: 1, LaunchPath: &lp, IsLaunchable: true}
	container := &types.ScormSco{ID: uuid.New(), PackageID: packageID, Identifier: "c", SortOrder: 2}
	_, _ = scoRepo.CreateBulk(ctx, nil, []*types.ScormSco{sco1, sco2, container})

	_, _ = trackingRepo.Create(ctx, nil, &types.ScormTracking{
		ID: uuid.New(), UserID: userID, ScoID: sco1.ID,
		LessonStatus: "passed", CompletionStatus: "completed", SuccessStatus: "passed",
	})

	progress, err := svc.GetPackageProgress(ctx, userID, packageID)
	if err != nil {
		t.Fatalf("GetPackageProgress: %v", err)
	}
	// containers do not count toward completion
	if progress.ScoCount != 2 {
		t.Errorf("sco count = %d", progress.ScoCount)
	}
	if progress.CompletedCount != 1 {
		t.Errorf("completed = %d", progress.CompletedCount)
	}
	if progress.Percentage != 50 {
		t.Errorf("percentage = %v", progress.Percentage)
	}
	if len(progress.Scos) != 2 {
		t.Fatalf("expected 2 sco entries, got %d", len(progress.Scos))
	}
	if progress.Scos[0].Tracking == nil || progress.Scos[1].Tracking != nil {
		t.Error("tracking attachment mismatch")
	}

	if _, err := svc.GetPackageProgress(ctx, userID, uuid.New()); err == nil {
		t.Error("unknown package must error")
	}
}
