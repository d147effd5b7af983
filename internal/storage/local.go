package storage

import (
  "context"
  "errors"
  "fmt"
  "io"
  "io/fs"
  "os"
  "path/filepath"
  "sort"
  "strings"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
)

type localStore struct {
  root string
  log  *logger.Logger
}

// NewLocalStore stores blobs under root on the local filesystem. Keys are
// joined beneath root; callers are responsible for key normalization.
func NewLocalStore(root string, log *logger.Logger) (Store, error) {
  if root == "" {
    return nil, fmt.Errorf("local storage root is required")
  }
  if err := os.MkdirAll(root, 0o755); err != nil {
    return nil, fmt.Errorf("Failed to create local storage root: %w", err)
  }
  return &localStore{root: root, log: log.With("service", "LocalStore")}, nil
}

func (s *localStore) path(key string) string {
  return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
  f, err := os.Open(s.path(key))
  if err != nil {
    if errors.Is(err, fs.ErrNotExist) {
      return nil, ErrNotFound
    }
    return nil, err
  }
  info, err := f.Stat()
  if err != nil {
    _ = f.Close()
    return nil, err
  }
  if info.IsDir() {
    _ = f.Close()
    return nil, ErrNotFound
  }
  return f, nil
}

func (s *localStore) Save(ctx context.Context, key string, r io.Reader) error {
  target := s.path(key)
  if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
    return fmt.Errorf("Failed to create directory for %q: %w", key, err)
  }
  f, err := os.Create(target)
  if err != nil {
    return fmt.Errorf("Failed to create %q: %w", key, err)
  }
  if _, err := io.Copy(f, r); err != nil {
    _ = f.Close()
    return fmt.Errorf("Failed to write %q: %w", key, err)
  }
  return f.Close()
}

func (s *localStore) Delete(ctx context.Context, key string) error {
  err := os.Remove(s.path(key))
  if err != nil && !errors.Is(err, fs.ErrNotExist) {
    return err
  }
  // Prune now-empty parent directories up to the root.
  dir := filepath.Dir(s.path(key))
  for strings.HasPrefix(dir, s.root) && dir != s.root {
    if rmErr := os.Remove(dir); rmErr != nil {
      break
    }
    dir = filepath.Dir(dir)
  }
  return nil
}

func (s *localStore) ListDir(ctx context.Context, prefix string) ([]string, []string, error) {
  entries, err := os.ReadDir(s.path(prefix))
  if err != nil {
    if errors.Is(err, fs.ErrNotExist) {
      return nil, nil, nil
    }
    return nil, nil, err
  }
  var dirs, files []string
  for _, entry := range entries {
    if entry.IsDir() {
      dirs = append(dirs, entry.Name())
    } else {
      files = append(files, entry.Name())
    }
  }
  sort.Strings(dirs)
  sort.Strings(files)
  return dirs, files, nil
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
  _, err := os.Stat(s.path(key))
  if err != nil {
    if errors.Is(err, fs.ErrNotExist) {
      return false, nil
    }
    return false, err
  }
  return true, nil
}

func (s *localStore) URL(key string) (string, error) {
  return "", ErrNoURL
}
