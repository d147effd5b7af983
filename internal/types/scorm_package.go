package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScormPackage holds an uploaded SCORM ZIP and the metadata parsed from its
// imsmanifest.xml. ExtractedPath is empty until extraction has completed
// successfully for the current archive.
type ScormPackage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	PackageFile   string         `gorm:"column:package_file;not null" json:"package_file"`
	ExtractedPath string         `gorm:"column:extracted_path" json:"extracted_path"`
	LaunchURL     string         `gorm:"column:launch_url" json:"launch_url"`
	Version       string         `gorm:"column:version;not null;default:'1.2'" json:"version"`
	ManifestData  datatypes.JSON `gorm:"column:manifest_data" json:"manifest_data"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ScormPackage) TableName() string { return "scorm_package" }

// LaunchPath returns the serving path for the package's entry resource, or
// "" when the package has not been extracted or has no launch resource.
func (p *ScormPackage) LaunchPath() string {
	if p.ExtractedPath == "" || p.LaunchURL == "" {
		return ""
	}
	return "/scorm-content/" + p.ExtractedPath + "/" + p.LaunchURL
}
