package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course delivers content one of two ways: a single SCORM package, or
// H5P-powered lessons. The two modes are distinct and never mixed.
type Course struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Description    string         `gorm:"column:description" json:"description"`
	Live           bool           `gorm:"column:live;not null;default:true" json:"live"`
	ScormPackageID *uuid.UUID     `gorm:"type:uuid;index" json:"scorm_package_id,omitempty"`
	ScormPackage   *ScormPackage  `gorm:"constraint:OnDelete:SET NULL;foreignKey:ScormPackageID;references:ID" json:"scorm_package,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
