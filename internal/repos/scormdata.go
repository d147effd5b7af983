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

type ScormDataRepo interface {
  Get(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, key string) (*types.ScormData, error)
  Upsert(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, key, value string) error
}

type scormDataRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewScormDataRepo(db *gorm.DB, baseLog *logger.Logger) ScormDataRepo {
  repoLog := baseLog.With("repo", "ScormDataRepo")
  return &scormDataRepo{db: db, log: repoLog}
}

func (r *scormDataRepo) Get(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, key string) (*types.ScormData, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var row types.ScormData
  if err := transaction.WithContext(ctx).
    Where("attempt_id = ? AND key = ?", attemptID, key).
    First(&row).Error; err != nil {
    return nil, err
  }
  return &row, nil
}

// Upsert writes one cmi element. ON CONFLICT on the unique (attempt_id,
// key) pair keeps concurrent SetValue calls for the same key from
// corrupting the one-row-per-key invariant.
func (r *scormDataRepo) Upsert(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, key, value string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  row := &types.ScormData{
    ID:        uuid.New(),
    AttemptID: attemptID,
    Key:       key,
    Value:     value,
    UpdatedAt: time.Now(),
  }
  return transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "key"}},
      DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
    }).
    Create(row).Error
}
