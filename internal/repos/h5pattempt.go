package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type H5PAttemptRepo interface {
  GetOrCreate(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*types.H5PAttempt, bool, error)
  GetByUserAndActivity(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*types.H5PAttempt, error)
  Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  CountCompletedByUserAndActivityIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityIDs []uuid.UUID) (int64, error)
}

type h5pAttemptRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewH5PAttemptRepo(db *gorm.DB, baseLog *logger.Logger) H5PAttemptRepo {
  repoLog := baseLog.With("repo", "H5PAttemptRepo")
  return &h5pAttemptRepo{db: db, log: repoLog}
}

func (r *h5pAttemptRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*types.H5PAttempt, bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  row := &types.H5PAttempt{UserID: userID, ActivityID: activityID}
  res := transaction.WithContext(ctx).
    Where("user_id = ? AND activity_id = ?", userID, activityID).
    Attrs(&types.H5PAttempt{
      ID:               uuid.New(),
      StartedAt:        now,
      LastAccessed:     now,
      CompletionStatus: types.CompletionNotAttempted,
      SuccessStatus:    types.SuccessUnknown,
    }).
    FirstOrCreate(row)
  if res.Error != nil {
    var existing types.H5PAttempt
    if ferr := transaction.WithContext(ctx).
      Where("user_id = ? AND activity_id = ?", userID, activityID).
      First(&existing).Error; ferr == nil {
      return &existing, false, nil
    }
    return nil, false, res.Error
  }
  return row, res.RowsAffected > 0, nil
}

func (r *h5pAttemptRepo) GetByUserAndActivity(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*types.H5PAttempt, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var attempt types.H5PAttempt
  if err := transaction.WithContext(ctx).
    Where("user_id = ? AND activity_id = ?", userID, activityID).
    First(&attempt).Error; err != nil {
    return nil, err
  }
  return &attempt, nil
}

func (r *h5pAttemptRepo) Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.H5PAttempt{}).
    Where("id = ?", id).
    Updates(fields).Error
}

// CountCompletedByUserAndActivityIDs counts how many of the given
// activities the user has completed. Lesson aggregation compares this
// against the lesson's activity count.
func (r *h5pAttemptRepo) CountCompletedByUserAndActivityIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activityIDs []uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(activityIDs) == 0 {
    return 0, nil
  }
  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.H5PAttempt{}).
    Where("user_id = ? AND activity_id IN ? AND completion_status = ?", userID, activityIDs, types.CompletionCompleted).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}
