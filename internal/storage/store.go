package storage

import (
  "context"
  "errors"
  "io"
)

// ErrNotFound is returned for missing keys and directory-like opens so
// callers can map every miss to the same user-visible not-found.
var ErrNotFound = errors.New("storage: object not found")

// ErrNoURL is returned by backends that cannot mint a direct URL for a key
// (local filesystem). Callers treat it as "redirect unavailable".
var ErrNoURL = errors.New("storage: backend has no native URL")

// Store abstracts blob storage for packages and extracted content. Keys
// are forward-slash paths; no implementation may assume local-filesystem
// path access on the caller's behalf.
type Store interface {
  Open(ctx context.Context, key string) (io.ReadCloser, error)
  Save(ctx context.Context, key string, r io.Reader) error
  Delete(ctx context.Context, key string) error
  // ListDir returns immediate subdirectory names and file names under
  // prefix. A missing prefix is not an error: both slices come back empty.
  ListDir(ctx context.Context, prefix string) ([]string, []string, error)
  Exists(ctx context.Context, key string) (bool, error)
  // URL returns a backend-native URL for the key, for redirect-mode media
  // serving.
  URL(key string) (string, error)
}
