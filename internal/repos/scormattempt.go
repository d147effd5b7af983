package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type ScormAttemptRepo interface {
  GetOrCreate(ctx context.Context, tx *gorm.DB, userID, packageID uuid.UUID, defaultCompletion string) (*types.ScormAttempt, bool, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormAttempt, error)
  Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  TouchLastAccessed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
}

type scormAttemptRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewScormAttemptRepo(db *gorm.DB, baseLog *logger.Logger) ScormAttemptRepo {
  repoLog := baseLog.With("repo", "ScormAttemptRepo")
  return &scormAttemptRepo{db: db, log: repoLog}
}

func (r *scormAttemptRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID, packageID uuid.UUID, defaultCompletion string) (*types.ScormAttempt, bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if defaultCompletion == "" {
    defaultCompletion = types.CompletionNotAttempted
  }
  now := time.Now()
  row := &types.ScormAttempt{UserID: userID, PackageID: packageID}
  res := transaction.WithContext(ctx).
    Where("user_id = ? AND package_id = ?", userID, packageID).
    Attrs(&types.ScormAttempt{
      ID:               uuid.New(),
      StartedAt:        now,
      LastAccessed:     now,
      CompletionStatus: defaultCompletion,
      SuccessStatus:    types.SuccessUnknown,
    }).
    FirstOrCreate(row)
  if res.Error != nil {
    var existing types.ScormAttempt
    if ferr := transaction.WithContext(ctx).
      Where("user_id = ? AND package_id = ?", userID, packageID).
      First(&existing).Error; ferr == nil {
      return &existing, false, nil
    }
    return nil, false, res.Error
  }
  return row, res.RowsAffected > 0, nil
}

func (r *scormAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormAttempt, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var attempt types.ScormAttempt
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&attempt).Error; err != nil {
    return nil, err
  }
  return &attempt, nil
}

func (r *scormAttemptRepo) Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.ScormAttempt{}).
    Where("id = ?", id).
    Updates(fields).Error
}

func (r *scormAttemptRepo) TouchLastAccessed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.ScormAttempt{}).
    Where("id = ?", id).
    Update("last_accessed", at).Error
}
