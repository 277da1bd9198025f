package types

import (
	"time"

	"github.com/google/uuid"
)

// ScormSco is one node of a package's organization forest. Containers
// are persisted with a null launch path so the outline stays complete.
type ScormSco struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PackageID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_sco_package_identifier,unique" json:"package_id"`
	Package      *ScormPackage `gorm:"constraint:OnDelete:CASCADE;foreignKey:PackageID;references:ID" json:"package,omitempty"`
	Identifier   string        `gorm:"column:identifier;not null;index:idx_sco_package_identifier,unique" json:"identifier"`
	Title        string        `gorm:"column:title" json:"title"`
	LaunchPath   *string       `gorm:"column:launch_path" json:"launch_path,omitempty"`
	IsLaunchable bool          `gorm:"column:is_launchable;not null;default:false" json:"is_launchable"`
	SortOrder    int           `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	ParentID     *uuid.UUID    `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	Parent       *ScormSco     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParentID;references:ID" json:"-"`
	CreatedAt    time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:now()" json:"updated_at"`

	Children []*ScormSco `gorm:"-" json:"children,omitempty"`
}

func (ScormSco) TableName() string { return "scorm_sco" }
