package services

import (
  "context"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
)

// CompletionService propagates attempt-level progress upward. The SCORM
// path is direct (one package per course); the H5P path aggregates
// activity attempts into lesson completions and lesson completions into
// course completion. All steps are idempotent, so re-delivered statements
// and repeated SetValue calls cannot double-complete anything.
type CompletionService interface {
  CompleteScormPackage(ctx context.Context, userID, packageID uuid.UUID) error
  OnActivityCompleted(ctx context.Context, userID, activityID uuid.UUID) error
}

type completionService struct {
  courseRepo           repos.CourseRepo
  lessonRepo           repos.LessonRepo
  enrollmentRepo       repos.EnrollmentRepo
  lessonCompletionRepo repos.LessonCompletionRepo
  h5pAttemptRepo       repos.H5PAttemptRepo
  log                  *logger.Logger
}

func NewCompletionService(
  courseRepo repos.CourseRepo,
  lessonRepo repos.LessonRepo,
  enrollmentRepo repos.EnrollmentRepo,
  lessonCompletionRepo repos.LessonCompletionRepo,
  h5pAttemptRepo repos.H5PAttemptRepo,
  baseLog *logger.Logger,
) CompletionService {
  return &completionService{
    courseRepo:           courseRepo,
    lessonRepo:           lessonRepo,
    enrollmentRepo:       enrollmentRepo,
    lessonCompletionRepo: lessonCompletionRepo,
    h5pAttemptRepo:       h5pAttemptRepo,
    log:                  baseLog.With("service", "CompletionService"),
  }
}

// CompleteScormPackage marks the enrollment for the package's course as
// completed. A package not attached to any course, or a user without an
// enrollment, is a no-op, not an error. An already-set completion
// timestamp is never overwritten.
func (s *completionService) CompleteScormPackage(ctx context.Context, userID, packageID uuid.UUID) error {
  course, err := s.courseRepo.GetByScormPackageID(ctx, nil, packageID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil
    }
    return err
  }
  if err := s.enrollmentRepo.MarkCompleted(ctx, nil, userID, course.ID, time.Now()); err != nil {
    return err
  }
  s.log.Info("SCORM completion propagated to enrollment",
    "user_id", userID, "course_id", course.ID, "package_id", packageID)
  return nil
}

// OnActivityCompleted re-evaluates lesson and course completion for every
// live lesson embedding the activity. Lessons in courses the user is not
// enrolled in are skipped.
func (s *completionService) OnActivityCompleted(ctx context.Context, userID, activityID uuid.UUID) error {
  lessonIDs, err := s.lessonRepo.ListLiveLessonIDsByActivityID(ctx, nil, activityID)
  if err != nil {
    return err
  }
  for _, lessonID := range lessonIDs {
    if err := s.evaluateLesson(ctx, userID, lessonID); err != nil {
      return err
    }
  }
  return nil
}

func (s *completionService) evaluateLesson(ctx context.Context, userID, lessonID uuid.UUID) error {
  lesson, err := s.lessonRepo.GetByID(ctx, nil, lessonID)
  if err != nil {
    return err
  }
  if _, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, lesson.CourseID); err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil
    }
    return err
  }

  activityIDs, err := s.lessonRepo.ListActivityIDsByLessonID(ctx, nil, lessonID)
  if err != nil {
    return err
  }
  if len(activityIDs) == 0 {
    return nil
  }
  completed, err := s.h5pAttemptRepo.CountCompletedByUserAndActivityIDs(ctx, nil, userID, activityIDs)
  if err != nil {
    return err
  }
  if completed < int64(len(activityIDs)) {
    return nil
  }

  _, created, err := s.lessonCompletionRepo.GetOrCreate(ctx, nil, userID, lessonID)
  if err != nil {
    return err
  }
  if created {
    s.log.Info("Lesson completed", "user_id", userID, "lesson_id", lessonID)
  }
  return s.evaluateCourse(ctx, userID, lesson.CourseID)
}

// evaluateCourse completes the enrollment once every trackable lesson is
// done. Trackable means live with at least one activity; a course with no
// trackable lessons is never auto-completed.
func (s *completionService) evaluateCourse(ctx context.Context, userID, courseID uuid.UUID) error {
  trackable, err := s.lessonRepo.ListTrackableLessonIDsByCourseID(ctx, nil, courseID)
  if err != nil {
    return err
  }
  if len(trackable) == 0 {
    return nil
  }
  done, err := s.lessonCompletionRepo.ListLessonIDsByUser(ctx, nil, userID, trackable)
  if err != nil {
    return err
  }
  if len(done) < len(trackable) {
    return nil
  }
  if err := s.enrollmentRepo.MarkCompleted(ctx, nil, userID, courseID, time.Now()); err != nil {
    return err
  }
  s.log.Info("Course completed", "user_id", userID, "course_id", courseID)
  return nil
}
