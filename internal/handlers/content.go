package handlers

import (
  "errors"
  "io"
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

// ContentHandler streams extracted package files to authenticated users.
// Content is user-authored and runs in the learner's browser, so every
// response pins framing to the same origin.
type ContentHandler struct {
  content          services.ContentService
  scormContentRoot string
  h5pContentRoot   string
  log              *logger.Logger
}

func NewContentHandler(content services.ContentService, baseLog *logger.Logger) *ContentHandler {
  return &ContentHandler{
    content:          content,
    scormContentRoot: services.ScormContentRoot,
    h5pContentRoot:   services.H5PContentRoot,
    log:              baseLog.With("handler", "ContentHandler"),
  }
}

func (h *ContentHandler) ServeScormContent(c *gin.Context) {
  h.serve(c, h.scormContentRoot)
}

func (h *ContentHandler) ServeH5PContent(c *gin.Context) {
  h.serve(c, h.h5pContentRoot)
}

func (h *ContentHandler) serve(c *gin.Context, contentRoot string) {
  requestPath := strings.TrimPrefix(c.Param("path"), "/")

  resolved, err := h.content.Serve(c.Request.Context(), contentRoot, requestPath)
  if err != nil {
    if errors.Is(err, services.ErrContentNotFound) {
      respondError(c, http.StatusNotFound, "not found")
      return
    }
    h.log.Error("Failed to serve content", "path", requestPath, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }

  c.Header("X-Frame-Options", "SAMEORIGIN")
  c.Header("Content-Security-Policy", "frame-ancestors 'self'")
  if resolved.SetCache {
    c.Header("Cache-Control", resolved.CacheControl)
  }

  if resolved.RedirectURL != "" {
    c.Redirect(http.StatusFound, resolved.RedirectURL)
    return
  }

  defer resolved.Body.Close()
  c.Header("Content-Type", resolved.ContentType)
  c.Status(http.StatusOK)
  if _, err := io.Copy(c.Writer, resolved.Body); err != nil {
    h.log.Debug("Content stream aborted", "path", requestPath, "error", err)
  }
}
