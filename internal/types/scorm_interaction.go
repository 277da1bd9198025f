package types

import (
	"time"

	"github.com/google/uuid"
)

// ScormInteraction is one quiz interaction reported by content. The
// (tracking, interaction_id) pair is the upsert key: repeated reports
// for the same question replace the row instead of duplicating it.
type ScormInteraction struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TrackingID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_interaction_tracking_key,unique" json:"tracking_id"`
	Tracking        *ScormTracking `gorm:"constraint:OnDelete:CASCADE;foreignKey:TrackingID;references:ID" json:"tracking,omitempty"`
	InteractionID   string         `gorm:"column:interaction_id;not null;index:idx_interaction_tracking_key,unique" json:"interaction_id"`
	Type            string         `gorm:"column:type;not null" json:"type"`
	Description     string         `gorm:"column:description;type:text" json:"description"`
	LearnerResponse string         `gorm:"column:learner_response;type:text" json:"learner_response"`
	CorrectResponse string         `gorm:"column:correct_response;type:text" json:"correct_response"`
	Result          string         `gorm:"column:result;not null" json:"result"`
	Weighting       float64        `gorm:"column:weighting;not null;default:1" json:"weighting"`
	LatencySeconds  *float64       `gorm:"column:latency_seconds" json:"latency_seconds,omitempty"`
	Timestamp       time.Time      `gorm:"column:timestamp;not null" json:"timestamp"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScormInteraction) TableName() string { return "scorm_interaction" }
