package handlers

import (
  "net/http"
  "strconv"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/middleware"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

// UserDataHandler implements the contentUserData endpoint the
// h5p-standalone player calls for save/resume state. The response shapes
// ({"success": true, "data": ...}) are what the player expects; data is
// the literal false when nothing is stored.
type UserDataHandler struct {
  userData services.ContentUserDataService
  log      *logger.Logger
}

func NewUserDataHandler(userData services.ContentUserDataService, baseLog *logger.Logger) *UserDataHandler {
  return &UserDataHandler{userData: userData, log: baseLog.With("handler", "UserDataHandler")}
}

// userDataParams reads dataType and subContentId from query or form, in
// the camelCase spelling the h5p-standalone client uses.
func userDataParams(c *gin.Context) (string, int, string, bool) {
  dataType := c.Query("dataType")
  if dataType == "" {
    dataType = c.PostForm("dataType")
  }
  if dataType == "" {
    return "", 0, "Missing dataType", false
  }
  if len(dataType) > services.MaxDataTypeLen {
    return "", 0, "dataType too long", false
  }
  subContentRaw := c.Query("subContentId")
  if subContentRaw == "" {
    subContentRaw = c.PostForm("subContentId")
  }
  subContentID := 0
  if subContentRaw != "" {
    parsed, err := strconv.Atoi(subContentRaw)
    if err != nil || parsed < 0 {
      return "", 0, "Invalid subContentId", false
    }
    subContentID = parsed
  }
  return dataType, subContentID, "", true
}

func (h *UserDataHandler) Get(c *gin.Context) {
  user := middleware.CurrentUser(c)
  activityID, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  dataType, subContentID, msg, ok := userDataParams(c)
  if !ok {
    c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
    return
  }

  value, found, err := h.userData.Get(c.Request.Context(), user.ID, activityID, dataType, subContentID)
  if err != nil {
    h.log.Error("Failed to read content user data", "activity_id", activityID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  if !found {
    c.JSON(http.StatusOK, gin.H{"success": true, "data": false})
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true, "data": value})
}

func (h *UserDataHandler) Set(c *gin.Context) {
  user := middleware.CurrentUser(c)
  activityID, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  dataType, subContentID, msg, ok := userDataParams(c)
  if !ok {
    c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
    return
  }
  data, present := c.GetPostForm("data")
  if !present {
    c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing data"})
    return
  }
  if len(data) > services.MaxUserDataBytes {
    c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "data too large"})
    return
  }

  if err := h.userData.Set(c.Request.Context(), user.ID, activityID, dataType, subContentID, data); err != nil {
    h.log.Error("Failed to store content user data", "activity_id", activityID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusOK, gin.H{"success": true})
}
