package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type H5PActivityRepo interface {
  Create(ctx context.Context, tx *gorm.DB, activity *types.H5PActivity) (*types.H5PActivity, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.H5PActivity, error)
  Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type h5pActivityRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewH5PActivityRepo(db *gorm.DB, baseLog *logger.Logger) H5PActivityRepo {
  repoLog := baseLog.With("repo", "H5PActivityRepo")
  return &h5pActivityRepo{db: db, log: repoLog}
}

func (r *h5pActivityRepo) Create(ctx context.Context, tx *gorm.DB, activity *types.H5PActivity) (*types.H5PActivity, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if activity.ID == uuid.Nil {
    activity.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(activity).Error; err != nil {
    return nil, err
  }
  return activity, nil
}

func (r *h5pActivityRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.H5PActivity, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var activity types.H5PActivity
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&activity).Error; err != nil {
    return nil, err
  }
  return &activity, nil
}

func (r *h5pActivityRepo) Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.H5PActivity{}).
    Where("id = ?", id).
    Updates(fields).Error
}

func (r *h5pActivityRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.H5PActivity{}).Error
}
