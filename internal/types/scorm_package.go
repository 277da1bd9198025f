package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ScormPackage struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Identifier   string         `gorm:"column:identifier;uniqueIndex;not null" json:"identifier"`
	Version      string         `gorm:"column:version;not null" json:"version"`
	Description  string         `gorm:"column:description" json:"description"`
	ContentRoot  string         `gorm:"column:content_root;not null" json:"content_root"`
	EntryPoint   string         `gorm:"column:entry_point" json:"entry_point"`
	ManifestMeta datatypes.JSON `gorm:"column:manifest_meta;type:jsonb" json:"manifest_meta,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScormPackage) TableName() string { return "scorm_package" }
