package services

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

var (
  ErrNotEnrolled    = errors.New("user is not enrolled in this course")
  ErrNoScormContent = errors.New("course has no launchable SCORM package")
)

type EnrollmentConfig struct {
  // AutoEnroll creates the enrollment on first content access instead of
  // requiring an explicit enroll action.
  AutoEnroll bool
}

// ScormLaunch is everything the player page needs to boot a package.
type ScormLaunch struct {
  AttemptID  uuid.UUID `json:"attempt_id"`
  PackageID  uuid.UUID `json:"package_id"`
  Version    string    `json:"version"`
  LaunchPath string    `json:"launch_path"`
}

type EnrollmentService interface {
  Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)
  Get(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
  // LaunchScorm resolves the course's package, ensures an enrollment and
  // an attempt, and returns the launch parameters.
  LaunchScorm(ctx context.Context, userID, courseID uuid.UUID) (*ScormLaunch, error)
}

type enrollmentService struct {
  cfg            EnrollmentConfig
  courseRepo     repos.CourseRepo
  enrollmentRepo repos.EnrollmentRepo
  pkgRepo        repos.ScormPackageRepo
  attemptRepo    repos.ScormAttemptRepo
  log            *logger.Logger
}

func NewEnrollmentService(
  cfg EnrollmentConfig,
  courseRepo repos.CourseRepo,
  enrollmentRepo repos.EnrollmentRepo,
  pkgRepo repos.ScormPackageRepo,
  attemptRepo repos.ScormAttemptRepo,
  baseLog *logger.Logger,
) EnrollmentService {
  return &enrollmentService{
    cfg:            cfg,
    courseRepo:     courseRepo,
    enrollmentRepo: enrollmentRepo,
    pkgRepo:        pkgRepo,
    attemptRepo:    attemptRepo,
    log:            baseLog.With("service", "EnrollmentService"),
  }
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
  if _, err := s.courseRepo.GetByID(ctx, nil, courseID); err != nil {
    return nil, false, err
  }
  enrollment, created, err := s.enrollmentRepo.GetOrCreate(ctx, nil, userID, courseID)
  if err != nil {
    return nil, false, err
  }
  if created {
    s.log.Info("Enrolled user", "user_id", userID, "course_id", courseID)
  }
  return enrollment, created, nil
}

func (s *enrollmentService) Get(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
  return s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID)
}

func (s *enrollmentService) LaunchScorm(ctx context.Context, userID, courseID uuid.UUID) (*ScormLaunch, error) {
  course, err := s.courseRepo.GetByID(ctx, nil, courseID)
  if err != nil {
    return nil, err
  }
  if course.ScormPackageID == nil {
    return nil, ErrNoScormContent
  }
  pkg, err := s.pkgRepo.GetByID(ctx, nil, *course.ScormPackageID)
  if err != nil {
    return nil, err
  }
  launchPath := pkg.LaunchPath()
  if launchPath == "" {
    return nil, ErrNoScormContent
  }

  if s.cfg.AutoEnroll {
    if _, _, err := s.enrollmentRepo.GetOrCreate(ctx, nil, userID, courseID); err != nil {
      return nil, err
    }
  } else {
    if _, err := s.enrollmentRepo.GetByUserAndCourse(ctx, nil, userID, courseID); err != nil {
      if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, ErrNotEnrolled
      }
      return nil, err
    }
  }

  attempt, created, err := s.attemptRepo.GetOrCreate(ctx, nil, userID, pkg.ID, types.CompletionIncomplete)
  if err != nil {
    return nil, err
  }
  if created {
    s.log.Info("Started SCORM attempt", "user_id", userID, "package_id", pkg.ID, "attempt_id", attempt.ID)
  }
  return &ScormLaunch{
    AttemptID:  attempt.ID,
    PackageID:  pkg.ID,
    Version:    pkg.Version,
    LaunchPath: launchPath,
  }, nil
}
