package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type ScormPackageRepo interface {
  Create(ctx context.Context, tx *gorm.DB, pkg *types.ScormPackage) (*types.ScormPackage, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormPackage, error)
  Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type scormPackageRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewScormPackageRepo(db *gorm.DB, baseLog *logger.Logger) ScormPackageRepo {
  repoLog := baseLog.With("repo", "ScormPackageRepo")
  return &scormPackageRepo{db: db, log: repoLog}
}

func (r *scormPackageRepo) Create(ctx context.Context, tx *gorm.DB, pkg *types.ScormPackage) (*types.ScormPackage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if pkg.ID == uuid.Nil {
    pkg.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(pkg).Error; err != nil {
    return nil, err
  }
  return pkg, nil
}

func (r *scormPackageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ScormPackage, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var pkg types.ScormPackage
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&pkg).Error; err != nil {
    return nil, err
  }
  return &pkg, nil
}

func (r *scormPackageRepo) Updates(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.ScormPackage{}).
    Where("id = ?", id).
    Updates(fields).Error
}

func (r *scormPackageRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.ScormPackage{}).Error
}
