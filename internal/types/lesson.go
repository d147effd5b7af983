package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course    *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Intro     string         `gorm:"column:intro" json:"intro"`
	Position  int            `gorm:"column:position;not null;default:0" json:"position"`
	Live      bool           `gorm:"column:live;not null;default:true" json:"live"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

// LessonActivity is the structural index of H5P activities embedded in a
// lesson. Completion aggregation walks this table instead of parsing the
// lesson's rendered content.
type LessonActivity struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_lesson_activity,unique" json:"lesson_id"`
	Lesson     *Lesson      `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	ActivityID uuid.UUID    `gorm:"type:uuid;not null;index:idx_lesson_activity,unique" json:"activity_id"`
	Activity   *H5PActivity `gorm:"constraint:OnDelete:CASCADE;foreignKey:ActivityID;references:ID" json:"activity,omitempty"`
	Position   int          `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LessonActivity) TableName() string { return "lesson_activity" }
