package services

import (
  "context"
  "errors"
  "io"
  "mime"
  "path"
  "strings"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/storage"
)

// ErrContentNotFound covers both genuinely missing files and rejected
// request paths, so a probing client cannot distinguish the two.
var ErrContentNotFound = errors.New("content not found")

// DefaultCacheControl ships sensible starting points; deployments override
// per content type via LMS_CACHE_CONTROL. An empty-string value suppresses
// the Cache-Control header for that type entirely.
var DefaultCacheControl = map[string]string{
  "text/html": "no-cache",
  "audio/*":   "public, max-age=86400",
  "video/*":   "public, max-age=86400",
  "image/*":   "public, max-age=86400",
  "font/*":    "public, max-age=604800",
  "default":   "public, max-age=3600",
}

type ContentConfig struct {
  CacheControl map[string]string
  // RedirectMedia serves audio and video via a redirect to a
  // backend-native URL instead of streaming through the app.
  RedirectMedia bool
}

// ResolvedContent is what a content request resolves to: either a body to
// stream or a URL to redirect to, plus response headers.
type ResolvedContent struct {
  Body         io.ReadCloser
  ContentType  string
  CacheControl string
  SetCache     bool
  RedirectURL  string
}

type ContentService interface {
  Serve(ctx context.Context, contentRoot, requestPath string) (*ResolvedContent, error)
}

type contentService struct {
  store storage.Store
  cfg   ContentConfig
  log   *logger.Logger
}

func NewContentService(store storage.Store, cfg ContentConfig, baseLog *logger.Logger) ContentService {
  if cfg.CacheControl == nil {
    cfg.CacheControl = DefaultCacheControl
  }
  return &contentService{store: store, cfg: cfg, log: baseLog.With("service", "ContentService")}
}

// NormalizeContentPath applies the same traversal rules as extraction to a
// requested content path. Rejected paths report not-found rather than a
// distinct error.
func NormalizeContentPath(requestPath string) (string, error) {
  normalized, ok := normalizeMemberName(requestPath)
  if !ok {
    return "", ErrContentNotFound
  }
  return normalized, nil
}

// ContentTypeFor guesses a Content-Type from the file extension, falling
// back to application/octet-stream.
func ContentTypeFor(name string) string {
  ct := mime.TypeByExtension(path.Ext(name))
  if ct == "" {
    return "application/octet-stream"
  }
  // Strip charset parameters so cache lookup keys stay stable.
  if i := strings.Index(ct, ";"); i >= 0 {
    ct = strings.TrimSpace(ct[:i])
  }
  return ct
}

// cacheControlFor resolves the Cache-Control value for a content type:
// exact match first, then the longest matching type/* wildcard, then the
// "default" key. The second return is false when no rule applies or the
// matched value is empty, meaning no header should be set.
func (s *contentService) cacheControlFor(contentType string) (string, bool) {
  if v, ok := s.cfg.CacheControl[contentType]; ok {
    return v, v != ""
  }
  bestLen := -1
  var bestVal string
  for pattern, v := range s.cfg.CacheControl {
    if !strings.HasSuffix(pattern, "/*") {
      continue
    }
    prefix := pattern[:len(pattern)-1]
    if strings.HasPrefix(contentType, prefix) && len(pattern) > bestLen {
      bestLen = len(pattern)
      bestVal = v
    }
  }
  if bestLen >= 0 {
    return bestVal, bestVal != ""
  }
  if v, ok := s.cfg.CacheControl["default"]; ok {
    return v, v != ""
  }
  return "", false
}

func isMediaType(contentType string) bool {
  return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}

func (s *contentService) Serve(ctx context.Context, contentRoot, requestPath string) (*ResolvedContent, error) {
  normalized, err := NormalizeContentPath(requestPath)
  if err != nil {
    s.log.Warn("Rejected content path", "path", requestPath)
    return nil, err
  }
  key := strings.TrimSuffix(contentRoot, "/") + "/" + normalized

  contentType := ContentTypeFor(normalized)
  resolved := &ResolvedContent{ContentType: contentType}
  resolved.CacheControl, resolved.SetCache = s.cacheControlFor(contentType)

  if s.cfg.RedirectMedia && isMediaType(contentType) {
    url, uerr := s.store.URL(key)
    if uerr == nil {
      exists, eerr := s.store.Exists(ctx, key)
      if eerr != nil {
        return nil, eerr
      }
      if !exists {
        return nil, ErrContentNotFound
      }
      resolved.RedirectURL = url
      return resolved, nil
    }
    if !errors.Is(uerr, storage.ErrNoURL) {
      return nil, uerr
    }
    // Backend has no native URLs; fall through to streaming.
  }

  body, err := s.store.Open(ctx, key)
  if err != nil {
    if errors.Is(err, storage.ErrNotFound) {
      return nil, ErrContentNotFound
    }
    return nil, err
  }
  resolved.Body = body
  return resolved, nil
}
