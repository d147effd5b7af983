package types

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a user to a course. CompletedAt is monotonic: once set
// it is never cleared or regressed.
type Enrollment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"course_id"`
	Course      *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	EnrolledAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"enrolled_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Enrollment) TableName() string { return "enrollment" }

// LessonCompletion marks every H5P activity in a lesson done for a user.
// Middle layer between Enrollment and H5PAttempt: course completion becomes
// an all-lessons-complete query instead of re-walking activities on every
// xAPI event. Rows are created once and never updated.
type LessonCompletion struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_completion,unique" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID    uuid.UUID `gorm:"type:uuid;not null;index:idx_user_lesson_completion,unique" json:"lesson_id"`
	Lesson      *Lesson   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	CompletedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"completed_at"`
}

func (LessonCompletion) TableName() string { return "lesson_completion" }
