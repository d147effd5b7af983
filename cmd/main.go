package main

import (
  "encoding/json"
  "log"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/handlers"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/server"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
  "github.com/dr-rompecabezas/lms-backend/internal/storage"
  "github.com/dr-rompecabezas/lms-backend/internal/utils"
)

func main() {
  mode := utils.GetEnv("APP_ENV", "dev", nil)
  appLog, err := logger.New(mode)
  if err != nil {
    log.Fatalf("Failed to initialize logger: %v", err)
  }
  defer appLog.Sync()

  var gormDB *gorm.DB
  switch utils.GetEnv("DB_DRIVER", "postgres", appLog) {
  case "sqlite":
    sqliteService, err := db.NewSQLiteService(appLog)
    if err != nil {
      appLog.Fatal("Failed to initialize sqlite", "error", err)
    }
    if err := sqliteService.AutoMigrateAll(); err != nil {
      appLog.Fatal("Failed to migrate sqlite tables", "error", err)
    }
    gormDB = sqliteService.DB()
  default:
    postgresService, err := db.NewPostgresService(appLog)
    if err != nil {
      appLog.Fatal("Failed to initialize postgres", "error", err)
    }
    if err := postgresService.AutoMigrateAll(); err != nil {
      appLog.Fatal("Failed to migrate postgres tables", "error", err)
    }
    gormDB = postgresService.DB()
  }

  var store storage.Store
  switch utils.GetEnv("STORAGE_BACKEND", "local", appLog) {
  case "gcs":
    store, err = storage.NewGCSStore(appLog)
  default:
    store, err = storage.NewLocalStore(utils.GetEnv("LOCAL_STORAGE_ROOT", "./media", appLog), appLog)
  }
  if err != nil {
    appLog.Fatal("Failed to initialize storage backend", "error", err)
  }

  userRepo := repos.NewUserRepo(gormDB, appLog)
  courseRepo := repos.NewCourseRepo(gormDB, appLog)
  lessonRepo := repos.NewLessonRepo(gormDB, appLog)
  enrollmentRepo := repos.NewEnrollmentRepo(gormDB, appLog)
  lessonCompletionRepo := repos.NewLessonCompletionRepo(gormDB, appLog)
  scormPackageRepo := repos.NewScormPackageRepo(gormDB, appLog)
  scormAttemptRepo := repos.NewScormAttemptRepo(gormDB, appLog)
  scormDataRepo := repos.NewScormDataRepo(gormDB, appLog)
  h5pActivityRepo := repos.NewH5PActivityRepo(gormDB, appLog)
  h5pAttemptRepo := repos.NewH5PAttemptRepo(gormDB, appLog)
  xapiStatementRepo := repos.NewXapiStatementRepo(gormDB, appLog)
  contentUserDataRepo := repos.NewContentUserDataRepo(gormDB, appLog)

  contentCfg := services.ContentConfig{
    RedirectMedia: utils.GetEnvAsBool("REDIRECT_MEDIA", false, appLog),
  }
  if raw := utils.GetEnv("LMS_CACHE_CONTROL", "", appLog); raw != "" {
    overrides := map[string]string{}
    if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
      appLog.Warn("Ignoring malformed LMS_CACHE_CONTROL", "error", err)
    } else {
      contentCfg.CacheControl = overrides
    }
  }

  authService := services.NewAuthService(userRepo, appLog)
  extractor := services.NewExtractor(store, appLog)
  scormPackageService := services.NewScormPackageService(gormDB, store, extractor, scormPackageRepo, appLog)
  h5pActivityService := services.NewH5PActivityService(gormDB, store, extractor, h5pActivityRepo, appLog)
  contentService := services.NewContentService(store, contentCfg, appLog)
  completionService := services.NewCompletionService(courseRepo, lessonRepo, enrollmentRepo, lessonCompletionRepo, h5pAttemptRepo, appLog)
  courseService := services.NewCourseService(gormDB, courseRepo, lessonRepo, appLog)
  enrollmentService := services.NewEnrollmentService(
    services.EnrollmentConfig{AutoEnroll: utils.GetEnvAsBool("LMS_AUTO_ENROLL", true, appLog)},
    courseRepo, enrollmentRepo, scormPackageRepo, scormAttemptRepo, appLog)
  scormRuntimeService := services.NewScormRuntimeService(gormDB, scormAttemptRepo, scormDataRepo, userRepo, completionService, appLog)
  xapiService := services.NewXapiService(gormDB, h5pAttemptRepo, xapiStatementRepo, completionService, appLog)
  userDataService := services.NewContentUserDataService(gormDB, h5pAttemptRepo, contentUserDataRepo, appLog)

  router := server.NewRouter(server.RouterConfig{
    Log:                appLog,
    Auth:               authService,
    HealthcheckHandler: handlers.NewHealthcheckHandler(),
    AuthHandler:        handlers.NewAuthHandler(authService, appLog),
    CourseHandler:      handlers.NewCourseHandler(courseService, enrollmentService, appLog),
    PackageHandler:     handlers.NewPackageHandler(scormPackageService, h5pActivityService, appLog),
    ScormHandler:       handlers.NewScormHandler(scormRuntimeService, appLog),
    XapiHandler:        handlers.NewXapiHandler(xapiService, h5pActivityService, appLog),
    UserDataHandler:    handlers.NewUserDataHandler(userDataService, appLog),
    ContentHandler:     handlers.NewContentHandler(contentService, appLog),
  })

  port := utils.GetEnv("PORT", "8080", appLog)
  appLog.Info("Starting server", "port", port)
  if err := router.Run(":" + port); err != nil {
    appLog.Fatal("Server exited", "error", err)
  }
}
