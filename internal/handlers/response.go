package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "gorm.io/gorm"
)

func respondError(c *gin.Context, status int, message string) {
  c.JSON(status, gin.H{"error": message})
}

// respondLookupError maps a repo read error: missing rows become 404,
// everything else a 500 with a generic message.
func respondLookupError(c *gin.Context, err error) {
  if errors.Is(err, gorm.ErrRecordNotFound) {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  respondError(c, http.StatusInternalServerError, "internal error")
}
