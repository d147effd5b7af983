package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type ContentUserDataRepo interface {
  Get(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int) (*types.ContentUserData, error)
  Upsert(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int, value string) error
  Delete(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int) error
}

type contentUserDataRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewContentUserDataRepo(db *gorm.DB, baseLog *logger.Logger) ContentUserDataRepo {
  repoLog := baseLog.With("repo", "ContentUserDataRepo")
  return &contentUserDataRepo{db: db, log: repoLog}
}

func (r *contentUserDataRepo) Get(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int) (*types.ContentUserData, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var row types.ContentUserData
  if err := transaction.WithContext(ctx).
    Where("attempt_id = ? AND data_type = ? AND sub_content_id = ?", attemptID, dataType, subContentID).
    First(&row).Error; err != nil {
    return nil, err
  }
  return &row, nil
}

func (r *contentUserDataRepo) Upsert(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int, value string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  row := &types.ContentUserData{
    ID:           uuid.New(),
    AttemptID:    attemptID,
    DataType:     dataType,
    SubContentID: subContentID,
    Value:        value,
    CreatedAt:    now,
    UpdatedAt:    now,
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "data_type"}, {Name: "sub_content_id"}},
      DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
    }).
    Create(row).Error
}

func (r *contentUserDataRepo) Delete(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, dataType string, subContentID int) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("attempt_id = ? AND data_type = ? AND sub_content_id = ?", attemptID, dataType, subContentID).
    Delete(&types.ContentUserData{}).Error
}
