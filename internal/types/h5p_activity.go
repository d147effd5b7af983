package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// H5PActivity is a reusable interactive activity. Authors upload a .h5p
// file; the package is extracted on creation and the activity can then be
// embedded in any lesson via LessonActivity.
type H5PActivity struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	PackageFile   string         `gorm:"column:package_file;not null" json:"package_file"`
	ExtractedPath string         `gorm:"column:extracted_path" json:"extracted_path"`
	MainLibrary   string         `gorm:"column:main_library" json:"main_library"`
	H5PJSON       datatypes.JSON `gorm:"column:h5p_json" json:"h5p_json"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (H5PActivity) TableName() string { return "h5p_activity" }

// ContentBaseURL is the path the h5p-standalone player appends /h5p.json,
// /content/content.json, etc. to. Empty until the package is extracted.
func (a *H5PActivity) ContentBaseURL() string {
	if a.ExtractedPath == "" {
		return ""
	}
	return "/h5p-content/" + a.ExtractedPath
}
