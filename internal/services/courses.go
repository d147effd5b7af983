package services

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type CreateCourseInput struct {
  Title          string
  Description    string
  Live           bool
  ScormPackageID *uuid.UUID
}

type CreateLessonInput struct {
  CourseID    uuid.UUID
  Title       string
  Intro       string
  Position    int
  Live        bool
  ActivityIDs []uuid.UUID
}

type CourseService interface {
  CreateCourse(ctx context.Context, in CreateCourseInput) (*types.Course, error)
  GetCourse(ctx context.Context, id uuid.UUID) (*types.Course, error)
  // CreateLesson creates the lesson and its activity index rows in one
  // transaction; the index is what completion aggregation walks.
  CreateLesson(ctx context.Context, in CreateLessonInput) (*types.Lesson, error)
  ListLiveLessons(ctx context.Context, courseID uuid.UUID) ([]*types.Lesson, error)
}

type courseService struct {
  gdb        *gorm.DB
  courseRepo repos.CourseRepo
  lessonRepo repos.LessonRepo
  log        *logger.Logger
}

func NewCourseService(gdb *gorm.DB, courseRepo repos.CourseRepo, lessonRepo repos.LessonRepo, baseLog *logger.Logger) CourseService {
  return &courseService{
    gdb:        gdb,
    courseRepo: courseRepo,
    lessonRepo: lessonRepo,
    log:        baseLog.With("service", "CourseService"),
  }
}

func (s *courseService) CreateCourse(ctx context.Context, in CreateCourseInput) (*types.Course, error) {
  course := &types.Course{
    ID:             uuid.New(),
    Title:          in.Title,
    Description:    in.Description,
    Live:           in.Live,
    ScormPackageID: in.ScormPackageID,
  }
  created, err := s.courseRepo.Create(ctx, nil, course)
  if err != nil {
    return nil, err
  }
  s.log.Info("Created course", "course_id", created.ID, "title", created.Title)
  return created, nil
}

func (s *courseService) GetCourse(ctx context.Context, id uuid.UUID) (*types.Course, error) {
  return s.courseRepo.GetByID(ctx, nil, id)
}

func (s *courseService) CreateLesson(ctx context.Context, in CreateLessonInput) (*types.Lesson, error) {
  lesson := &types.Lesson{
    ID:       uuid.New(),
    CourseID: in.CourseID,
    Title:    in.Title,
    Intro:    in.Intro,
    Position: in.Position,
    Live:     in.Live,
  }
  err := db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    if _, err := s.lessonRepo.Create(ctx, tx, lesson); err != nil {
      return err
    }
    if len(in.ActivityIDs) == 0 {
      return nil
    }
    rows := make([]*types.LessonActivity, 0, len(in.ActivityIDs))
    for i, activityID := range in.ActivityIDs {
      rows = append(rows, &types.LessonActivity{
        ID:         uuid.New(),
        LessonID:   lesson.ID,
        ActivityID: activityID,
        Position:   i,
      })
    }
    _, err := s.lessonRepo.CreateActivities(ctx, tx, rows)
    return err
  })
  if err != nil {
    return nil, err
  }
  s.log.Info("Created lesson",
    "lesson_id", lesson.ID, "course_id", in.CourseID, "activities", len(in.ActivityIDs))
  return lesson, nil
}

func (s *courseService) ListLiveLessons(ctx context.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
  return s.lessonRepo.ListLiveByCourseID(ctx, nil, courseID)
}
