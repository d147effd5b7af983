package services

import (
  "context"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
)

const (
  // UserDataDeleteSentinel is the value the h5p-standalone client posts
  // to clear previously saved state.
  UserDataDeleteSentinel = "0"
  // MaxUserDataBytes caps one saved state blob.
  MaxUserDataBytes = 64 * 1024
  // MaxDataTypeLen caps the dataType discriminator ("state" in practice).
  MaxDataTypeLen = 255
)

// ContentUserDataService persists H5P resume state per attempt. Reads are
// side-effect free: a user who has never touched an activity gets a miss,
// not a fresh attempt row.
type ContentUserDataService interface {
  Get(ctx context.Context, userID, activityID uuid.UUID, dataType string, subContentID int) (string, bool, error)
  Set(ctx context.Context, userID, activityID uuid.UUID, dataType string, subContentID int, value string) error
}

type contentUserDataService struct {
  gdb          *gorm.DB
  attemptRepo  repos.H5PAttemptRepo
  userDataRepo repos.ContentUserDataRepo
  log          *logger.Logger
}

func NewContentUserDataService(
  gdb *gorm.DB,
  attemptRepo repos.H5PAttemptRepo,
  userDataRepo repos.ContentUserDataRepo,
  baseLog *logger.Logger,
) ContentUserDataService {
  return &contentUserDataService{
    gdb:          gdb,
    attemptRepo:  attemptRepo,
    userDataRepo: userDataRepo,
    log:          baseLog.With("service", "ContentUserDataService"),
  }
}

func (s *contentUserDataService) Get(ctx context.Context, userID, activityID uuid.UUID, dataType string, subContentID int) (string, bool, error) {
  attempt, err := s.attemptRepo.GetByUserAndActivity(ctx, nil, userID, activityID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return "", false, nil
    }
    return "", false, err
  }
  row, err := s.userDataRepo.Get(ctx, nil, attempt.ID, dataType, subContentID)
  if err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return "", false, nil
    }
    return "", false, err
  }
  return row.Value, true, nil
}

// Set upserts one state blob, creating the attempt lazily. The sentinel
// value deletes instead of storing.
func (s *contentUserDataService) Set(ctx context.Context, userID, activityID uuid.UUID, dataType string, subContentID int, value string) error {
  return db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    attempt, _, err := s.attemptRepo.GetOrCreate(ctx, tx, userID, activityID)
    if err != nil {
      return err
    }
    if err := s.attemptRepo.Updates(ctx, tx, attempt.ID, map[string]interface{}{
      "last_accessed": time.Now(),
    }); err != nil {
      return err
    }
    if value == UserDataDeleteSentinel {
      return s.userDataRepo.Delete(ctx, tx, attempt.ID, dataType, subContentID)
    }
    return s.userDataRepo.Upsert(ctx, tx, attempt.ID, dataType, subContentID, value)
  })
}
