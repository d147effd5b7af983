package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type CourseRepo interface {
  Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
  GetByScormPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) (*types.Course, error)
}

type courseRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
  repoLog := baseLog.With("repo", "CourseRepo")
  return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if course.ID == uuid.Nil {
    course.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(course).Error; err != nil {
    return nil, err
  }
  return course, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var course types.Course
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&course).Error; err != nil {
    return nil, err
  }
  return &course, nil
}

// GetByScormPackageID resolves the course that delivers a given SCORM
// package. The data model assigns a package to at most one course.
func (r *courseRepo) GetByScormPackageID(ctx context.Context, tx *gorm.DB, packageID uuid.UUID) (*types.Course, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var course types.Course
  if err := transaction.WithContext(ctx).
    Where("scorm_package_id = ?", packageID).
    First(&course).Error; err != nil {
    return nil, err
  }
  return &course, nil
}
