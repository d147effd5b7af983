package storage

import (
  "context"
  "errors"
  "fmt"
  "io"
  "os"
  "sort"
  "strings"
  "time"
  "cloud.google.com/go/storage"
  "google.golang.org/api/iterator"
  "google.golang.org/api/option"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
)

type gcsStore struct {
  log        *logger.Logger
  client     *storage.Client
  bucketName string
  cdnDomain  string
}

// NewGCSStore backs the content store with a Google Cloud Storage bucket.
// GCS_BUCKET_NAME is required; GOOGLE_APPLICATION_CREDENTIALS_JSON falls
// back to ambient ADC when unset. CDN_DOMAIN, when set, fronts URL().
func NewGCSStore(log *logger.Logger) (Store, error) {
  storeLog := log.With("service", "GCSStore")
  bucket := os.Getenv("GCS_BUCKET_NAME")
  if bucket == "" {
    return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
  }
  cdnDomain := os.Getenv("CDN_DOMAIN")
  saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
  if saPath == "" {
    storeLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on ambient ADC")
  }
  ctx := context.Background()
  var client *storage.Client
  var err error
  if saPath != "" {
    client, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
  } else {
    client, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
  }
  if err != nil {
    return nil, fmt.Errorf("Failed to create storage client: %w", err)
  }
  return &gcsStore{
    log:        storeLog,
    client:     client,
    bucketName: bucket,
    cdnDomain:  cdnDomain,
  }, nil
}

func (s *gcsStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
  r, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
  if err != nil {
    if errors.Is(err, storage.ErrObjectNotExist) {
      return nil, ErrNotFound
    }
    return nil, err
  }
  return r, nil
}

func (s *gcsStore) Save(ctx context.Context, key string, r io.Reader) error {
  ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
  defer cancel()
  w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
  if _, err := io.Copy(w, r); err != nil {
    _ = w.Close()
    return fmt.Errorf("Failed to write data to GCS: %w", err)
  }
  if err := w.Close(); err != nil {
    return fmt.Errorf("Failed to close GCS writer: %w", err)
  }
  return nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
  ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
  defer cancel()
  err := s.client.Bucket(s.bucketName).Object(key).Delete(ctx)
  if errors.Is(err, storage.ErrObjectNotExist) {
    return nil
  }
  return err
}

func (s *gcsStore) ListDir(ctx context.Context, prefix string) ([]string, []string, error) {
  if prefix != "" && !strings.HasSuffix(prefix, "/") {
    prefix += "/"
  }
  it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{
    Prefix:    prefix,
    Delimiter: "/",
  })
  var dirs, files []string
  for {
    attrs, err := it.Next()
    if errors.Is(err, iterator.Done) {
      break
    }
    if err != nil {
      return nil, nil, err
    }
    if attrs.Prefix != "" {
      dirs = append(dirs, strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/"))
      continue
    }
    files = append(files, strings.TrimPrefix(attrs.Name, prefix))
  }
  sort.Strings(dirs)
  sort.Strings(files)
  return dirs, files, nil
}

func (s *gcsStore) Exists(ctx context.Context, key string) (bool, error) {
  _, err := s.client.Bucket(s.bucketName).Object(key).Attrs(ctx)
  if err != nil {
    if errors.Is(err, storage.ErrObjectNotExist) {
      return false, nil
    }
    return false, err
  }
  return true, nil
}

func (s *gcsStore) URL(key string) (string, error) {
  if s.cdnDomain != "" {
    return fmt.Sprintf("https://%s/%s", s.cdnDomain, key), nil
  }
  return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key), nil
}
