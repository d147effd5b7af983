package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type LessonCompletionRepo interface {
  GetOrCreate(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonCompletion, bool, error)
  ListLessonIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]uuid.UUID, error)
}

type lessonCompletionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewLessonCompletionRepo(db *gorm.DB, baseLog *logger.Logger) LessonCompletionRepo {
  repoLog := baseLog.With("repo", "LessonCompletionRepo")
  return &lessonCompletionRepo{db: db, log: repoLog}
}

// GetOrCreate is idempotent: re-checking a completed lesson returns the
// existing row and reports created=false.
func (r *lessonCompletionRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) (*types.LessonCompletion, bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  row := &types.LessonCompletion{UserID: userID, LessonID: lessonID}
  res := transaction.WithContext(ctx).
    Where("user_id = ? AND lesson_id = ?", userID, lessonID).
    Attrs(&types.LessonCompletion{ID: uuid.New(), CompletedAt: time.Now()}).
    FirstOrCreate(row)
  if res.Error != nil {
    var existing types.LessonCompletion
    if ferr := transaction.WithContext(ctx).
      Where("user_id = ? AND lesson_id = ?", userID, lessonID).
      First(&existing).Error; ferr == nil {
      return &existing, false, nil
    }
    return nil, false, res.Error
  }
  return row, res.RowsAffected > 0, nil
}

// ListLessonIDsByUser filters the given lesson ids down to those the user
// has completed.
func (r *lessonCompletionRepo) ListLessonIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, lessonIDs []uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if len(lessonIDs) == 0 {
    return ids, nil
  }
  if err := transaction.WithContext(ctx).
    Model(&types.LessonCompletion{}).
    Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
    Pluck("lesson_id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}
