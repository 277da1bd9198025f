package scorm

import (
	"testing"

	"github.com/courseloom/scorm-backend/internal/types"
)

func freshTracking() *types.ScormTracking {
	return &types.ScormTracking{
		LessonStatus:     "not attempted",
		Entry:            "ab-initio",
		CompletionStatus: "unknown",
		SuccessStatus:    "unknown",
	}
}

func set(t *testing.T, tr *types.ScormTracking, v Version, element, value string) error {
	t.Helper()
	spec, ok := ElementTable(v)[element]
	if !ok {
		t.Fatalf("element %s not in table for %q", element, v)
	}
	if spec.Set == nil {
		t.Fatalf("element %s is read-only", element)
	}
	return spec.Set(tr, value)
}

func get(t *testing.T, tr *types.ScormTracking, v Version, element string) string {
	t.Helper()
	spec, ok := ElementTable(v)[element]
	if !ok {
		t.Fatalf("element %s not in table for %q", element, v)
	}
	return spec.Get(tr)
}

func TestLessonStatusEnum(t *testing.T) {
	tr := freshTracking()
	for _, valid := range []string{"passed", "completed", "failed", "incomplete", "browsed", "not attempted"} {
		if err := set(t, tr, Version12, "cmi.core.lesson_status", valid); err != nil {
			t.Errorf("status %q rejected: %v", valid, err)
		}
	}
	err := set(t, tr, Version12, "cmi.core.lesson_status", "done")
	if !IsCode(err, CodeInvalidValue) {
		t.Errorf("expected invalid_value for bogus status, got %v", err)
	}
}

func TestStatusMirroring12To2004(t *testing.T) {
	cases := []struct {
		lesson         string
		wantCompletion string
		wantSuccess    string
	}{
		{"passed", "completed", "passed"},
		{"completed", "completed", "unknown"},
		{"browsed", "completed", "unknown"},
		{"failed", "incomplete", "failed"},
		{"incomplete", "incomplete", "unknown"},
		{"not attempted", "not attempted", "unknown"},
	}
	for _, tc := range cases {
		tr := freshTracking()
		if err := set(t, tr, Version12, "cmi.core.lesson_status", tc.lesson); err != nil {
			t.Fatalf("set %q: %v", tc.lesson, err)
		}
		if tr.CompletionStatus != tc.wantCompletion {
			t.Errorf("%q: completion = %q, want %q", tc.lesson, tr.CompletionStatus, tc.wantCompletion)
		}
		if tr.SuccessStatus != tc.wantSuccess {
			t.Errorf("%q: success = %q, want %q", tc.lesson, tr.SuccessStatus, tc.wantSuccess)
		}
	}
}

func TestStatusMirroring2004To12(t *testing.T) {
	tr := freshTracking()
	if err := set(t, tr, Version2004v3, "cmi.success_status", "passed"); err != nil {
		t.Fatalf("set success: %v", err)
	}
	if tr.LessonStatus != "passed" || tr.CompletionStatus != "completed" {
		t.Errorf("after success=passed: lesson=%q completion=%q", tr.LessonStatus, tr.CompletionStatus)
	}

	tr = freshTracking()
	if err := set(t, tr, Version2004v3, "cmi.completion_status", "completed"); err != nil {
		t.Fatalf("set completion: %v", err)
	}
	if tr.LessonStatus != "completed" {
		t.Errorf("after completion=completed: lesson=%q", tr.LessonStatus)
	}

	tr = freshTracking()
	if err := set(t, tr, Version2004v3, "cmi.success_status", "failed"); err != nil {
		t.Fatalf("set success: %v", err)
	}
	if tr.LessonStatus != "failed" {
		t.Errorf("after success=failed: lesson=%q", tr.LessonStatus)
	}
}

func TestScoreRanges(t *testing.T) {
	tr := freshTracking()

	if err := set(t, tr, Version12, "cmi.core.score.raw", "150"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("score.raw 150 must be rejected, got %v", err)
	}
	if tr.ScoreRaw != nil {
		t.Error("rejected write must not mutate the record")
	}

	if err := set(t, tr, Version12, "cmi.core.score.raw", "85.5"); err != nil {
		t.Fatalf("score.raw 85.5: %v", err)
	}
	if got := get(t, tr, Version12, "cmi.core.score.raw"); got != "85.5" {
		t.Errorf("score.raw reads back %q", got)
	}

	if err := set(t, tr, Version2004v3, "cmi.score.scaled", "1.5"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("score.scaled 1.5 must be rejected, got %v", err)
	}
	if err := set(t, tr, Version2004v3, "cmi.score.scaled", "-0.25"); err != nil {
		t.Errorf("score.scaled -0.25: %v", err)
	}
	if err := set(t, tr, Version2004v3, "cmi.progress_measure", "0.75"); err != nil {
		t.Errorf("progress_measure 0.75: %v", err)
	}
	if err := set(t, tr, Version2004v3, "cmi.progress_measure", "2"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("progress_measure 2 must be rejected, got %v", err)
	}
	if err := set(t, tr, Version12, "cmi.core.score.raw", "abc"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("non-numeric score must be rejected, got %v", err)
	}
}

func TestScoreDefaults12(t *testing.T) {
	tr := freshTracking()
	if got := get(t, tr, Version12, "cmi.core.score.raw"); got != "" {
		t.Errorf("unset score.raw = %q, want empty", got)
	}
	if got := get(t, tr, Version12, "cmi.core.score.min"); got != "0" {
		t.Errorf("unset score.min = %q, want 0", got)
	}
	if got := get(t, tr, Version12, "cmi.core.score.max"); got != "100" {
		t.Errorf("unset score.max = %q, want 100", got)
	}
	// 2004 has no implicit min/max
	if got := get(t, tr, Version2004v3, "cmi.score.min"); got != "" {
		t.Errorf("2004 unset score.min = %q, want empty", got)
	}
}

func TestReadOnlyElements(t *testing.T) {
	for _, tc := range []struct {
		v       Version
		element string
	}{
		{Version12, "cmi.core.entry"},
		{Version12, "cmi.core.total_time"},
		{Version12, "cmi.launch_data"},
		{Version2004v3, "cmi.entry"},
		{Version2004v3, "cmi.total_time"},
		{Version2004v3, "cmi.launch_data"},
	} {
		spec, ok := ElementTable(tc.v)[tc.element]
		if !ok {
			t.Errorf("%s missing from %q table", tc.element, tc.v)
			continue
		}
		if spec.Set != nil {
			t.Errorf("%s must be read-only under %q", tc.element, tc.v)
		}
	}
}

func TestSessionTimeCodecsPerVersion(t *testing.T) {
	tr := freshTracking()
	if err := set(t, tr, Version12, "cmi.core.session_time", "00:30:15"); err != nil {
		t.Fatalf("1.2 session_time: %v", err)
	}
	if tr.SessionTimeSeconds != 1815 {
		t.Errorf("session seconds = %d", tr.SessionTimeSeconds)
	}
	if err := set(t, tr, Version12, "cmi.core.session_time", "PT30M"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("ISO duration must be rejected under 1.2, got %v", err)
	}

	tr = freshTracking()
	if err := set(t, tr, Version2004v3, "cmi.session_time", "PT30M15S"); err != nil {
		t.Fatalf("2004 session_time: %v", err)
	}
	if tr.SessionTimeSeconds != 1815 {
		t.Errorf("session seconds = %d", tr.SessionTimeSeconds)
	}
	if err := set(t, tr, Version2004v3, "cmi.session_time", "00:30:15"); !IsCode(err, CodeInvalidValue) {
		t.Errorf("timespan must be rejected under 2004, got %v", err)
	}

	tr.TotalTimeSeconds = 3725
	if got := get(t, tr, Version12, "cmi.core.total_time"); got != "01:02:05" {
		t.Errorf("1.2 total_time = %q", got)
	}
	if got := get(t, tr, Version2004v3, "cmi.total_time"); got != "PT1H2M5S" {
		t.Errorf("2004 total_time = %q", got)
	}
}

func TestInteractionElementDetection(t *testing.T) {
	if !IsInteractionElement("cmi.interactions.0.result") {
		t.Error("cmi.interactions.0.result must be detected")
	}
	if IsInteractionElement("cmi.core.lesson_status") {
		t.Error("lesson_status is not an interaction element")
	}
}
