package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

type LessonRepo interface {
  Create(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) (*types.Lesson, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lesson, error)
  ListLiveByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error)
  CreateActivities(ctx context.Context, tx *gorm.DB, rows []*types.LessonActivity) ([]*types.LessonActivity, error)
  ListActivityIDsByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]uuid.UUID, error)
  ListLiveLessonIDsByActivityID(ctx context.Context, tx *gorm.DB, activityID uuid.UUID) ([]uuid.UUID, error)
  ListTrackableLessonIDsByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error)
}

type lessonRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
  repoLog := baseLog.With("repo", "LessonRepo")
  return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) (*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if lesson.ID == uuid.Nil {
    lesson.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(lesson).Error; err != nil {
    return nil, err
  }
  return lesson, nil
}

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var lesson types.Lesson
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&lesson).Error; err != nil {
    return nil, err
  }
  return &lesson, nil
}

func (r *lessonRepo) ListLiveByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Lesson, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Lesson
  if err := transaction.WithContext(ctx).
    Where("course_id = ? AND live = ?", courseID, true).
    Order("position asc").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *lessonRepo) CreateActivities(ctx context.Context, tx *gorm.DB, rows []*types.LessonActivity) ([]*types.LessonActivity, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(rows) == 0 {
    return []*types.LessonActivity{}, nil
  }
  for _, row := range rows {
    if row.ID == uuid.Nil {
      row.ID = uuid.New()
    }
  }
  if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
    return nil, err
  }
  return rows, nil
}

func (r *lessonRepo) ListActivityIDsByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.LessonActivity{}).
    Where("lesson_id = ?", lessonID).
    Order("position asc").
    Pluck("activity_id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}

// ListLiveLessonIDsByActivityID walks the structural index: every live
// lesson that embeds the given activity.
func (r *lessonRepo) ListLiveLessonIDsByActivityID(ctx context.Context, tx *gorm.DB, activityID uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.LessonActivity{}).
    Joins("JOIN lesson ON lesson.id = lesson_activity.lesson_id").
    Where("lesson_activity.activity_id = ? AND lesson.live = ? AND lesson.deleted_at IS NULL", activityID, true).
    Pluck("lesson_activity.lesson_id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}

// ListTrackableLessonIDsByCourseID returns live lessons in the course that
// embed at least one H5P activity. Purely informational lessons carry no
// activity rows and never gate course completion.
func (r *lessonRepo) ListTrackableLessonIDsByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.Lesson{}).
    Joins("JOIN lesson_activity ON lesson_activity.lesson_id = lesson.id").
    Where("lesson.course_id = ? AND lesson.live = ?", courseID, true).
    Distinct().
    Pluck("lesson.id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}
