package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// H5PAttempt tracks progress for one user on one H5P activity. Created
// lazily on the first xAPI statement or content-user-data write.
type H5PAttempt struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID    `gorm:"type:uuid;not null;index:idx_user_h5p_activity,unique" json:"user_id"`
	User             *User        `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ActivityID       uuid.UUID    `gorm:"type:uuid;not null;index:idx_user_h5p_activity,unique" json:"activity_id"`
	Activity         *H5PActivity `gorm:"constraint:OnDelete:CASCADE;foreignKey:ActivityID;references:ID" json:"activity,omitempty"`
	StartedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"started_at"`
	LastAccessed     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_accessed"`
	CompletionStatus string       `gorm:"column:completion_status;not null;default:'not_attempted'" json:"completion_status"`
	SuccessStatus    string       `gorm:"column:success_status;not null;default:'unknown'" json:"success_status"`
	ScoreRaw         *float64     `gorm:"column:score_raw" json:"score_raw,omitempty"`
	ScoreMin         *float64     `gorm:"column:score_min" json:"score_min,omitempty"`
	ScoreMax         *float64     `gorm:"column:score_max" json:"score_max,omitempty"`
	ScoreScaled      *float64     `gorm:"column:score_scaled" json:"score_scaled,omitempty"`
}

func (H5PAttempt) TableName() string { return "h5p_attempt" }

// XapiStatement is an append-only audit log of statements emitted by H5P
// content. Rows are never updated or individually deleted.
type XapiStatement struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"attempt_id"`
	Attempt     *H5PAttempt    `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttemptID;references:ID" json:"attempt,omitempty"`
	Verb        string         `gorm:"column:verb;not null" json:"verb"`
	VerbDisplay string         `gorm:"column:verb_display" json:"verb_display"`
	Statement   datatypes.JSON `gorm:"column:statement" json:"statement"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (XapiStatement) TableName() string { return "xapi_statement" }

// ContentUserData persists H5P resume/progress state, keyed by attempt,
// data type (e.g. "state") and sub-content id (nested part, usually 0).
type ContentUserData struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AttemptID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_attempt_data,unique" json:"attempt_id"`
	Attempt      *H5PAttempt `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttemptID;references:ID" json:"attempt,omitempty"`
	DataType     string      `gorm:"column:data_type;not null;index:idx_attempt_data,unique" json:"data_type"`
	SubContentID int         `gorm:"column:sub_content_id;not null;default:0;index:idx_attempt_data,unique" json:"sub_content_id"`
	Value        string      `gorm:"column:value" json:"value"`
	CreatedAt    time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ContentUserData) TableName() string { return "content_user_data" }
