package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

// XapiStatementRepo is append-only: statements are an audit trail, never
// updated or individually deleted.
type XapiStatementRepo interface {
  Create(ctx context.Context, tx *gorm.DB, row *types.XapiStatement) (*types.XapiStatement, error)
  ListByAttemptID(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.XapiStatement, error)
}

type xapiStatementRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewXapiStatementRepo(db *gorm.DB, baseLog *logger.Logger) XapiStatementRepo {
  repoLog := baseLog.With("repo", "XapiStatementRepo")
  return &xapiStatementRepo{db: db, log: repoLog}
}

func (r *xapiStatementRepo) Create(ctx context.Context, tx *gorm.DB, row *types.XapiStatement) (*types.XapiStatement, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if row.ID == uuid.Nil {
    row.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
    return nil, err
  }
  return row, nil
}

func (r *xapiStatementRepo) ListByAttemptID(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.XapiStatement, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.XapiStatement
  if err := transaction.WithContext(ctx).
    Where("attempt_id = ?", attemptID).
    Order("created_at asc").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
