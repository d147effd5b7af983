package server

import (
  "strings"
  "time"
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "github.com/dr-rompecabezas/lms-backend/internal/handlers"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/middleware"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
  "github.com/dr-rompecabezas/lms-backend/internal/utils"
)

type RouterConfig struct {
  Log                *logger.Logger
  Auth               services.AuthService
  HealthcheckHandler *handlers.HealthcheckHandler
  AuthHandler        *handlers.AuthHandler
  CourseHandler      *handlers.CourseHandler
  PackageHandler     *handlers.PackageHandler
  ScormHandler       *handlers.ScormHandler
  XapiHandler        *handlers.XapiHandler
  UserDataHandler    *handlers.UserDataHandler
  ContentHandler     *handlers.ContentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  r := gin.New()
  r.Use(gin.Recovery())

  allowedOrigins := strings.Split(utils.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", cfg.Log), ",")
  r.Use(cors.New(cors.Config{
    AllowOrigins:     allowedOrigins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
    AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
    AllowCredentials: true,
    MaxAge:           12 * time.Hour,
  }))

  r.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)

  v1 := r.Group("/api/v1")
  {
    v1.POST("/auth/register", cfg.AuthHandler.Register)
    v1.POST("/auth/login", cfg.AuthHandler.Login)
  }

  authed := v1.Group("")
  authed.Use(middleware.RequireAuth(cfg.Auth, cfg.Log))
  {
    authed.GET("/courses/:courseID", cfg.CourseHandler.GetCourse)
    authed.POST("/courses/:courseID/enroll", cfg.CourseHandler.Enroll)
    authed.GET("/courses/:courseID/scorm-launch", cfg.CourseHandler.ScormLaunch)

    // Runtime API: GET is registered so stray preflight-less requests get
    // the protocol-level error instead of a 404.
    authed.POST("/scorm-api/:attemptID", cfg.ScormHandler.API)
    authed.GET("/scorm-api/:attemptID", cfg.ScormHandler.API)

    authed.POST("/h5p-xapi/:activityID", cfg.XapiHandler.Ingest)
    authed.GET("/h5p-content-user-data/:activityID", cfg.UserDataHandler.Get)
    authed.POST("/h5p-content-user-data/:activityID", cfg.UserDataHandler.Set)
  }

  admin := v1.Group("")
  admin.Use(middleware.RequireAuth(cfg.Auth, cfg.Log), middleware.RequireAdmin())
  {
    admin.POST("/courses", cfg.CourseHandler.CreateCourse)
    admin.POST("/courses/:courseID/lessons", cfg.CourseHandler.CreateLesson)

    admin.POST("/scorm-packages", cfg.PackageHandler.UploadScormPackage)
    admin.GET("/scorm-packages/:packageID", cfg.PackageHandler.GetScormPackage)
    admin.DELETE("/scorm-packages/:packageID", cfg.PackageHandler.DeleteScormPackage)

    admin.POST("/h5p-activities", cfg.PackageHandler.UploadH5PActivity)
    admin.GET("/h5p-activities/:activityID", cfg.PackageHandler.GetH5PActivity)
    admin.PUT("/h5p-activities/:activityID/package", cfg.PackageHandler.ReplaceH5PPackage)
    admin.DELETE("/h5p-activities/:activityID", cfg.PackageHandler.DeleteH5PActivity)
  }

  content := r.Group("")
  content.Use(middleware.RequireAuth(cfg.Auth, cfg.Log))
  {
    content.GET("/scorm-content/*path", cfg.ContentHandler.ServeScormContent)
    content.GET("/h5p-content/*path", cfg.ContentHandler.ServeH5PContent)
  }

  return r
}
