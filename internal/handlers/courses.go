package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/middleware"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

type CourseHandler struct {
  courses     services.CourseService
  enrollments services.EnrollmentService
  log         *logger.Logger
}

func NewCourseHandler(courses services.CourseService, enrollments services.EnrollmentService, baseLog *logger.Logger) *CourseHandler {
  return &CourseHandler{
    courses:     courses,
    enrollments: enrollments,
    log:         baseLog.With("handler", "CourseHandler"),
  }
}

type createCourseRequest struct {
  Title          string     `json:"title" binding:"required"`
  Description    string     `json:"description"`
  Live           *bool      `json:"live"`
  ScormPackageID *uuid.UUID `json:"scorm_package_id"`
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
  var req createCourseRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  live := true
  if req.Live != nil {
    live = *req.Live
  }
  course, err := h.courses.CreateCourse(c.Request.Context(), services.CreateCourseInput{
    Title:          req.Title,
    Description:    req.Description,
    Live:           live,
    ScormPackageID: req.ScormPackageID,
  })
  if err != nil {
    h.log.Error("Failed to create course", "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
  courseID, err := uuid.Parse(c.Param("courseID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  course, err := h.courses.GetCourse(c.Request.Context(), courseID)
  if err != nil {
    respondLookupError(c, err)
    return
  }
  lessons, err := h.courses.ListLiveLessons(c.Request.Context(), courseID)
  if err != nil {
    h.log.Error("Failed to list lessons", "course_id", courseID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusOK, gin.H{"course": course, "lessons": lessons})
}

type createLessonRequest struct {
  Title       string      `json:"title" binding:"required"`
  Intro       string      `json:"intro"`
  Position    int         `json:"position"`
  Live        *bool       `json:"live"`
  ActivityIDs []uuid.UUID `json:"activity_ids"`
}

func (h *CourseHandler) CreateLesson(c *gin.Context) {
  courseID, err := uuid.Parse(c.Param("courseID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  var req createLessonRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  live := true
  if req.Live != nil {
    live = *req.Live
  }
  lesson, err := h.courses.CreateLesson(c.Request.Context(), services.CreateLessonInput{
    CourseID:    courseID,
    Title:       req.Title,
    Intro:       req.Intro,
    Position:    req.Position,
    Live:        live,
    ActivityIDs: req.ActivityIDs,
  })
  if err != nil {
    h.log.Error("Failed to create lesson", "course_id", courseID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}

func (h *CourseHandler) Enroll(c *gin.Context) {
  user := middleware.CurrentUser(c)
  courseID, err := uuid.Parse(c.Param("courseID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  enrollment, created, err := h.enrollments.Enroll(c.Request.Context(), user.ID, courseID)
  if err != nil {
    respondLookupError(c, err)
    return
  }
  status := http.StatusOK
  if created {
    status = http.StatusCreated
  }
  c.JSON(status, gin.H{"enrollment": enrollment})
}

// ScormLaunch returns the attempt id and launch path the player page needs.
func (h *CourseHandler) ScormLaunch(c *gin.Context) {
  user := middleware.CurrentUser(c)
  courseID, err := uuid.Parse(c.Param("courseID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  launch, err := h.enrollments.LaunchScorm(c.Request.Context(), user.ID, courseID)
  if err != nil {
    switch {
    case errors.Is(err, services.ErrNoScormContent):
      respondError(c, http.StatusNotFound, "course has no launchable SCORM package")
    case errors.Is(err, services.ErrNotEnrolled):
      respondError(c, http.StatusForbidden, "not enrolled in this course")
    default:
      respondLookupError(c, err)
    }
    return
  }
  c.JSON(http.StatusOK, gin.H{"launch": launch})
}
