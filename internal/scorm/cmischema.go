package scorm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/courseloom/scorm-backend/internal/types"
)

// InteractionsPrefix marks the cmi.interactions.* subtree. Those
// elements never go through the generic setter: the interaction
// recorder owns them, and the RTE contract still expects SetValue to
// answer success.
const InteractionsPrefix = "cmi.interactions."

func IsInteractionElement(element string) bool {
	return strings.HasPrefix(element, InteractionsPrefix)
}

// ElementSpec binds one external CMI element to the tracking record.
// A nil Set marks the element read-only for content.
type ElementSpec struct {
	Get func(t *types.ScormTracking) string
	Set func(t *types.ScormTracking, value string) error
}

// ElementTable returns the element mapping for the given SCORM version.
func ElementTable(v Version) map[string]ElementSpec {
	if v.Is2004() {
		return table2004
	}
	return table12
}

var lessonStatuses = []string{"passed", "completed", "failed", "incomplete", "browsed", "not attempted"}
var completionStatuses = []string{"completed", "incomplete", "not attempted", "unknown"}
var successStatuses = []string{"passed", "failed", "unknown"}
var exitValues = []string{"time-out", "suspend", "logout", "normal", ""}

var table12 = map[string]ElementSpec{
	"cmi.core.lesson_status": {
		Get: func(t *types.ScormTracking) string { return t.LessonStatus },
		Set: func(t *types.ScormTracking, v string) error {
			if err := checkEnum("cmi.core.lesson_status", v, lessonStatuses); err != nil {
				return err
			}
			t.LessonStatus = v
			syncFromLessonStatus(t)
			return nil
		},
	},
	"cmi.core.lesson_location": {
		Get: func(t *types.ScormTracking) string { return t.LessonLocation },
		Set: func(t *types.ScormTracking, v string) error {
			t.LessonLocation = v
			return nil
		},
	},
	"cmi.core.entry": {
		Get: func(t *types.ScormTracking) string { return t.Entry },
	},
	"cmi.core.exit": {
		Get: func(t *types.ScormTracking) string { return t.Exit },
		Set: func(t *types.ScormTracking, v string) error {
			if err := checkEnum("cmi.core.exit", v, exitValues); err != nil {
				return err
			}
			t.Exit = v
			return nil
		},
	},
	"cmi.core.score.raw": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreRaw, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.core.score.raw", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreRaw = f
			return nil
		},
	},
	"cmi.core.score.min": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreMin, "0") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.core.score.min", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreMin = f
			return nil
		},
	},
	"cmi.core.score.max": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreMax, "100") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.core.score.max", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreMax = f
			return nil
		},
	},
	"cmi.core.total_time": {
		Get: func(t *types.ScormTracking) string { return FormatTimespan(t.TotalTimeSeconds) },
	},
	"cmi.core.session_time": {
		Get: func(t *types.ScormTracking) string { return FormatTimespan(t.SessionTimeSeconds) },
		Set: func(t *types.ScormTracking, v string) error {
			secs, err := ParseTimespan(v)
			if err != nil {
				return InvalidValue("cmi.core.session_time", v, err.Error())
			}
			t.SessionTimeSeconds = secs
			return nil
		},
	},
	"cmi.suspend_data": {
		Get: func(t *types.ScormTracking) string { return t.SuspendData },
		Set: func(t *types.ScormTracking, v string) error {
			t.SuspendData = v
			return nil
		},
	},
	"cmi.launch_data": {
		Get: func(t *types.ScormTracking) string { return t.LaunchData },
	},
}

var table2004 = map[string]ElementSpec{
	"cmi.completion_status": {
		Get: func(t *types.ScormTracking) string { return t.CompletionStatus },
		Set: func(t *types.ScormTracking, v string) error {
			if err := checkEnum("cmi.completion_status", v, completionStatuses); err != nil {
				return err
			}
			t.CompletionStatus = v
			syncFromCompletionStatus(t)
			return nil
		},
	},
	"cmi.success_status": {
		Get: func(t *types.ScormTracking) string { return t.SuccessStatus },
		Set: func(t *types.ScormTracking, v string) error {
			if err := checkEnum("cmi.success_status", v, successStatuses); err != nil {
				return err
			}
			t.SuccessStatus = v
			syncFromSuccessStatus(t)
			return nil
		},
	},
	"cmi.location": {
		Get: func(t *types.ScormTracking) string { return t.LessonLocation },
		Set: func(t *types.ScormTracking, v string) error {
			t.LessonLocation = v
			return nil
		},
	},
	"cmi.entry": {
		Get: func(t *types.ScormTracking) string { return t.Entry },
	},
	"cmi.exit": {
		Get: func(t *types.ScormTracking) string { return t.Exit },
		Set: func(t *types.ScormTracking, v string) error {
			if err := checkEnum("cmi.exit", v, exitValues); err != nil {
				return err
			}
			t.Exit = v
			return nil
		},
	},
	"cmi.score.scaled": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreScaled, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.score.scaled", v, -1, 1)
			if err != nil {
				return err
			}
			t.ScoreScaled = f
			return nil
		},
	},
	"cmi.score.raw": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreRaw, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.score.raw", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreRaw = f
			return nil
		},
	},
	"cmi.score.min": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreMin, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.score.min", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreMin = f
			return nil
		},
	},
	"cmi.score.max": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ScoreMax, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.score.max", v, 0, 100)
			if err != nil {
				return err
			}
			t.ScoreMax = f
			return nil
		},
	},
	"cmi.progress_measure": {
		Get: func(t *types.ScormTracking) string { return formatScore(t.ProgressMeasure, "") },
		Set: func(t *types.ScormTracking, v string) error {
			f, err := parseRange("cmi.progress_measure", v, 0, 1)
			if err != nil {
				return err
			}
			t.ProgressMeasure = f
			return nil
		},
	},
	"cmi.total_time": {
		Get: func(t *types.ScormTracking) string { return FormatDuration(t.TotalTimeSeconds) },
	},
	"cmi.session_time": {
		Get: func(t *types.ScormTracking) string { return FormatDuration(t.SessionTimeSeconds) },
		Set: func(t *types.ScormTracking, v string) error {
			secs, err := ParseDuration(v)
			if err != nil {
				return InvalidValue("cmi.session_time", v, err.Error())
			}
			t.SessionTimeSeconds = secs
			return nil
		},
	},
	"cmi.suspend_data": {
		Get: func(t *types.ScormTracking) string { return t.SuspendData },
		Set: func(t *types.ScormTracking, v string) error {
			t.SuspendData = v
			return nil
		},
	},
	"cmi.launch_data": {
		Get: func(t *types.ScormTracking) string { return t.LaunchData },
	},
}

// Status mirroring between the 1.2 and 2004 vocabularies. Each write
// triggers one bounded set of side-assignments; side-writes never
// re-fire the rules, so there is no cascade.

func syncFromLessonStatus(t *types.ScormTracking) {
	switch t.LessonStatus {
	case "passed":
		t.CompletionStatus = "completed"
		t.SuccessStatus = "passed"
	case "completed", "browsed":
		t.CompletionStatus = "completed"
	case "failed":
		t.CompletionStatus = "incomplete"
		t.SuccessStatus = "failed"
	case "incomplete":
		t.CompletionStatus = "incomplete"
	case "not attempted":
		t.CompletionStatus = "not attempted"
	}
}

func syncFromCompletionStatus(t *types.ScormTracking) {
	switch t.CompletionStatus {
	case "completed":
		t.LessonStatus = "completed"
	case "incomplete":
		t.LessonStatus = "incomplete"
	case "not attempted":
		t.LessonStatus = "not attempted"
	}
}

func syncFromSuccessStatus(t *types.ScormTracking) {
	switch t.SuccessStatus {
	case "passed":
		t.LessonStatus = "passed"
		t.CompletionStatus = "completed"
	case "failed":
		t.LessonStatus = "failed"
	}
}

// SyncStatus re-applies the 1.2 -> 2004 mirroring from the current
// lesson status. Terminate runs it once more before persisting.
func SyncStatus(t *types.ScormTracking) {
	syncFromLessonStatus(t)
}

func checkEnum(element, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return InvalidValue(element, value, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

func parseRange(element, value string, min, max float64) (*float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, InvalidValue(element, value, "not a number")
	}
	if f < min || f > max {
		return nil, InvalidValue(element, value, fmt.Sprintf("out of range [%g, %g]", min, max))
	}
	return &f, nil
}

func formatScore(v *float64, def string) string {
	if v == nil {
		return def
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
