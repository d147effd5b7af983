package handlers

import (
  "io"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/middleware"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

// maxRteBodyBytes bounds one runtime API envelope; suspend_data is capped
// well below this by content players.
const maxRteBodyBytes = 256 * 1024

type ScormHandler struct {
  runtime services.ScormRuntimeService
  log     *logger.Logger
}

func NewScormHandler(runtime services.ScormRuntimeService, baseLog *logger.Logger) *ScormHandler {
  return &ScormHandler{runtime: runtime, log: baseLog.With("handler", "ScormHandler")}
}

// API is the single runtime API endpoint. Protocol failures are HTTP 200
// with errorCode 201 so the in-content API wrapper handles them; only a
// missing or foreign attempt is a transport-level 404. GET returns the
// same 201 payload as any other malformed call.
func (h *ScormHandler) API(c *gin.Context) {
  user := middleware.CurrentUser(c)
  attemptID, err := uuid.Parse(c.Param("attemptID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  attempt, err := h.runtime.GetAttemptForUser(c.Request.Context(), attemptID, user.ID)
  if err != nil {
    respondLookupError(c, err)
    return
  }

  if c.Request.Method != http.MethodPost {
    c.JSON(http.StatusOK, gin.H{"result": "false", "errorCode": "201"})
    return
  }

  body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRteBodyBytes))
  if err != nil {
    c.JSON(http.StatusOK, gin.H{"result": "false", "errorCode": "201"})
    return
  }
  c.JSON(http.StatusOK, h.runtime.Call(c.Request.Context(), attempt, body))
}
