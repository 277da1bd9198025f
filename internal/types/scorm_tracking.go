package types

import (
	"time"

	"github.com/google/uuid"
)

// ScormTracking is the per-(user, SCO) runtime record. The SCORM 1.2
// and 2004 shaped fields are kept mirrored by the CMI schema's
// synchronization rules; score raw/min/max columns are shared between
// the two views so a reader can never observe them diverge.
type ScormTracking struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_tracking_user_sco,unique" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ScoID  uuid.UUID `gorm:"type:uuid;not null;index:idx_tracking_user_sco,unique" json:"sco_id"`
	Sco    *ScormSco `gorm:"constraint:OnDelete:CASCADE;foreignKey:ScoID;references:ID" json:"sco,omitempty"`

	// SCORM 1.2 core
	LessonStatus   string `gorm:"column:lesson_status;not null;default:'not attempted'" json:"lesson_status"`
	LessonLocation string `gorm:"column:lesson_location" json:"lesson_location"`
	Entry          string `gorm:"column:entry;not null;default:'ab-initio'" json:"entry"`
	Exit           string `gorm:"column:exit" json:"exit"`

	// Shared score fields (0-100 raw scale)
	ScoreRaw *float64 `gorm:"column:score_raw" json:"score_raw,omitempty"`
	ScoreMin *float64 `gorm:"column:score_min" json:"score_min,omitempty"`
	ScoreMax *float64 `gorm:"column:score_max" json:"score_max,omitempty"`

	// Time bookkeeping, whole seconds
	TotalTimeSeconds   int `gorm:"column:total_time_seconds;not null;default:0" json:"total_time_seconds"`
	SessionTimeSeconds int `gorm:"column:session_time_seconds;not null;default:0" json:"session_time_seconds"`

	// SCORM 2004
	CompletionStatus string   `gorm:"column:completion_status;not null;default:'unknown'" json:"completion_status"`
	SuccessStatus    string   `gorm:"column:success_status;not null;default:'unknown'" json:"success_status"`
	ScoreScaled      *float64 `gorm:"column:score_scaled" json:"score_scaled,omitempty"`
	ProgressMeasure  *float64 `gorm:"column:progress_measure" json:"progress_measure,omitempty"`

	// Resume payloads
	SuspendData string `gorm:"column:suspend_data;type:text" json:"suspend_data"`
	LaunchData  string `gorm:"column:launch_data;type:text" json:"launch_data"`

	// Cached interaction analytics
	InteractionsCount        int      `gorm:"column:interactions_count;not null;default:0" json:"interactions_count"`
	CorrectInteractionsCount int      `gorm:"column:correct_interactions_count;not null;default:0" json:"correct_interactions_count"`
	ScorePercentage          *float64 `gorm:"column:score_percentage" json:"score_percentage,omitempty"`

	LastAccessedAt *time.Time `gorm:"column:last_accessed_at" json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScormTracking) TableName() string { return "scorm_tracking" }
