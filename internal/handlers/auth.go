package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

type AuthHandler struct {
  auth services.AuthService
  log  *logger.Logger
}

func NewAuthHandler(auth services.AuthService, baseLog *logger.Logger) *AuthHandler {
  return &AuthHandler{auth: auth, log: baseLog.With("handler", "AuthHandler")}
}

type registerRequest struct {
  Email     string `json:"email" binding:"required,email"`
  Password  string `json:"password" binding:"required,min=8"`
  FirstName string `json:"first_name"`
  LastName  string `json:"last_name"`
}

func (h *AuthHandler) Register(c *gin.Context) {
  var req registerRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
  if err != nil {
    if errors.Is(err, services.ErrEmailTaken) {
      respondError(c, http.StatusConflict, "email is already registered")
      return
    }
    h.log.Error("Failed to register user", "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
  Email    string `json:"email" binding:"required,email"`
  Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
  var req loginRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    respondError(c, http.StatusBadRequest, "invalid request body")
    return
  }
  token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    if errors.Is(err, services.ErrInvalidCredentials) {
      respondError(c, http.StatusUnauthorized, "invalid email or password")
      return
    }
    h.log.Error("Failed to log user in", "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusOK, gin.H{"access_token": token, "user": user})
}
