package db

import (
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
  "github.com/dr-rompecabezas/lms-backend/internal/utils"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
)

type PostgresService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "lms", log)

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  serviceLog.Info("Connecting to Postgres...")
  gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to connect to Postgres", "error", err)
    return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
  }

  return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating postgres tables...")
  if err := MigrateAll(s.db); err != nil {
    s.log.Error("Auto migration failed for postgres tables", "error", err)
    return err
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}

// MigrateAll creates/updates every table of the data model. Shared by the
// postgres and sqlite bootstraps and by repo-level tests.
func MigrateAll(gormDB *gorm.DB) error {
  return gormDB.AutoMigrate(
    &types.User{},
    &types.ScormPackage{},
    &types.H5PActivity{},
    &types.Course{},
    &types.Lesson{},
    &types.LessonActivity{},
    &types.Enrollment{},
    &types.LessonCompletion{},
    &types.ScormAttempt{},
    &types.ScormData{},
    &types.H5PAttempt{},
    &types.XapiStatement{},
    &types.ContentUserData{},
  )
}
