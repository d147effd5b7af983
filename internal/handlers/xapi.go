package handlers

import (
  "errors"
  "io"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/middleware"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

const maxStatementBytes = 512 * 1024

type XapiHandler struct {
  xapi       services.XapiService
  activities services.H5PActivityService
  log        *logger.Logger
}

func NewXapiHandler(xapi services.XapiService, activities services.H5PActivityService, baseLog *logger.Logger) *XapiHandler {
  return &XapiHandler{
    xapi:       xapi,
    activities: activities,
    log:        baseLog.With("handler", "XapiHandler"),
  }
}

// Ingest accepts one xAPI statement from in-browser H5P content.
func (h *XapiHandler) Ingest(c *gin.Context) {
  user := middleware.CurrentUser(c)
  activityID, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  if _, err := h.activities.Get(c.Request.Context(), activityID); err != nil {
    respondLookupError(c, err)
    return
  }

  body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStatementBytes))
  if err != nil || len(body) == 0 {
    respondError(c, http.StatusBadRequest, "missing statement body")
    return
  }

  result, err := h.xapi.Ingest(c.Request.Context(), user.ID, activityID, body)
  if err != nil {
    var verr *services.XapiValidationError
    if errors.As(err, &verr) {
      respondError(c, http.StatusBadRequest, verr.Message)
      return
    }
    h.log.Error("Failed to ingest statement", "activity_id", activityID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  if result.MarkedComplete {
    h.log.Debug("Statement marked activity complete", "activity_id", activityID)
  }
  // The h5p-standalone xAPI bridge checks for exactly this body.
  c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
