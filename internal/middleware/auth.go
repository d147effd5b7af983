package middleware

import (
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

const userContextKey = "currentUser"

// RequireAuth validates the bearer token and stashes the user on the gin
// context for handlers downstream.
func RequireAuth(auth services.AuthService, baseLog *logger.Logger) gin.HandlerFunc {
  log := baseLog.With("middleware", "RequireAuth")
  return func(c *gin.Context) {
    header := c.GetHeader("Authorization")
    if !strings.HasPrefix(header, "Bearer ") {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
      return
    }
    token := strings.TrimPrefix(header, "Bearer ")
    user, err := auth.Authenticate(c.Request.Context(), token)
    if err != nil {
      log.Debug("Rejected token", "error", err)
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
      return
    }
    c.Set(userContextKey, user)
    c.Next()
  }
}

func RequireAdmin() gin.HandlerFunc {
  return func(c *gin.Context) {
    user := CurrentUser(c)
    if user == nil || !user.IsAdmin {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
      return
    }
    c.Next()
  }
}

// SetCurrentUser stashes the user the way RequireAuth does. Handler tests
// use it to exercise authed routes without minting tokens.
func SetCurrentUser(c *gin.Context, user *types.User) {
  c.Set(userContextKey, user)
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(c *gin.Context) *types.User {
  v, ok := c.Get(userContextKey)
  if !ok {
    return nil
  }
  user, ok := v.(*types.User)
  if !ok {
    return nil
  }
  return user
}
