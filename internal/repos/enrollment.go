package repos

import (
  "context"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type EnrollmentRepo interface {
  GetOrCreate(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)
  GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, error)
  MarkCompleted(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, at time.Time) error
}

type enrollmentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
  repoLog := baseLog.With("repo", "EnrollmentRepo")
  return &enrollmentRepo{db: db, log: repoLog}
}

func (r *enrollmentRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  row := &types.Enrollment{UserID: userID, CourseID: courseID}
  res := transaction.WithContext(ctx).
    Where("user_id = ? AND course_id = ?", userID, courseID).
    Attrs(&types.Enrollment{ID: uuid.New(), EnrolledAt: time.Now()}).
    FirstOrCreate(row)
  if res.Error != nil {
    // A concurrent writer may have won the unique (user, course) race;
    // re-read before giving up.
    var existing types.Enrollment
    if ferr := transaction.WithContext(ctx).
      Where("user_id = ? AND course_id = ?", userID, courseID).
      First(&existing).Error; ferr == nil {
      return &existing, false, nil
    }
    return nil, false, res.Error
  }
  return row, res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.Enrollment, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var row types.Enrollment
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND course_id = ?", userID, courseID).
    First(&row).Error; err != nil {
    return nil, err
  }
  return &row, nil
}

// MarkCompleted sets completed_at only when it is currently unset, keeping
// completion idempotent and monotonic. A missing enrollment is not an
// error: completion events for non-enrolled users match zero rows.
func (r *enrollmentRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, at time.Time) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  err := transaction.WithContext(ctx).
    Model(&types.Enrollment{}).
    Where("user_id = ? AND course_id = ? AND completed_at IS NULL", userID, courseID).
    Update("completed_at", at).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil
  }
  return err
}
