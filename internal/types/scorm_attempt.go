package types

import (
	"time"

	"github.com/google/uuid"
)

// Completion and success status values shared by SCORM and H5P attempts.
// The two axes are independent: an attempt can be completed with success
// still unknown.
const (
	CompletionNotAttempted = "not_attempted"
	CompletionIncomplete   = "incomplete"
	CompletionCompleted    = "completed"
	CompletionUnknown      = "unknown"

	SuccessPassed  = "passed"
	SuccessFailed  = "failed"
	SuccessUnknown = "unknown"
)

// ScormAttempt tracks one learner's run through a SCORM package. One row
// per (user, package); created lazily on first runtime interaction.
type ScormAttempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_scorm_package,unique" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	PackageID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_scorm_package,unique" json:"package_id"`
	Package          *ScormPackage  `gorm:"constraint:OnDelete:CASCADE;foreignKey:PackageID;references:ID" json:"package,omitempty"`
	StartedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"started_at"`
	LastAccessed     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_accessed"`
	CompletionStatus string         `gorm:"column:completion_status;not null;default:'not_attempted'" json:"completion_status"`
	SuccessStatus    string         `gorm:"column:success_status;not null;default:'unknown'" json:"success_status"`
	ScoreRaw         *float64       `gorm:"column:score_raw" json:"score_raw,omitempty"`
	ScoreMin         *float64       `gorm:"column:score_min" json:"score_min,omitempty"`
	ScoreMax         *float64       `gorm:"column:score_max" json:"score_max,omitempty"`
	ScoreScaled      *float64       `gorm:"column:score_scaled" json:"score_scaled,omitempty"`
	TotalTime        *time.Duration `gorm:"column:total_time" json:"total_time,omitempty"`
	Location         string         `gorm:"column:location" json:"location"`
	SuspendData      string         `gorm:"column:suspend_data" json:"suspend_data"`
}

func (ScormAttempt) TableName() string { return "scorm_attempt" }

// ScormData is the generic cmi.* key/value store for elements not promoted
// to typed ScormAttempt fields. One row per (attempt, key), upserted on
// every SetValue.
type ScormData struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID uuid.UUID     `gorm:"type:uuid;not null;index:idx_attempt_key,unique" json:"attempt_id"`
	Attempt   *ScormAttempt `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttemptID;references:ID" json:"attempt,omitempty"`
	Key       string        `gorm:"column:key;not null;index:idx_attempt_key,unique" json:"key"`
	Value     string        `gorm:"column:value" json:"value"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ScormData) TableName() string { return "scorm_data" }
