package db

import (
  "fmt"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/utils"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
)

// SQLiteService backs local/dev deployments. SQLite's coarse write lock is
// why the SCORM SetValue path carries retry-on-"database is locked" logic;
// under postgres that retry path never fires.
type SQLiteService struct {
  db *gorm.DB
  log *logger.Logger
}

func NewSQLiteService(log *logger.Logger) (*SQLiteService, error) {
  serviceLog := log.With("service", "SQLiteService")

  path := utils.GetEnv("SQLITE_PATH", "lms.db", log)

  serviceLog.Info("Opening SQLite database...", "path", path)
  gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to open SQLite database", "error", err)
    return nil, fmt.Errorf("Failed to open SQLite database: %w", err)
  }

  return &SQLiteService{db: gormDB, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
  s.log.Info("Auto migrating sqlite tables...")
  if err := MigrateAll(s.db); err != nil {
    s.log.Error("Auto migration failed for sqlite tables", "error", err)
    return err
  }
  return nil
}

func (s *SQLiteService) DB() *gorm.DB {
  return s.db
}
