package services

import (
  "context"
  "strings"
  "golang.org/x/sync/errgroup"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/storage"
)

// listTreeFiles returns every file key under prefix, walking the directory
// hierarchy through the storage abstraction.
func listTreeFiles(ctx context.Context, store storage.Store, prefix string) (map[string]struct{}, error) {
  prefix = strings.TrimSuffix(prefix, "/")
  files := map[string]struct{}{}
  var walk func(dir string) error
  walk = func(dir string) error {
    subdirs, names, err := store.ListDir(ctx, dir)
    if err != nil {
      return err
    }
    for _, name := range names {
      files[dir+"/"+name] = struct{}{}
    }
    for _, sub := range subdirs {
      if err := walk(dir + "/" + sub); err != nil {
        return err
      }
    }
    return nil
  }
  if err := walk(prefix); err != nil {
    return nil, err
  }
  return files, nil
}

// deleteExtractedTree removes every file under {contentRoot}/{extractedPath}.
// The path is re-checked for traversal before any deletion because it comes
// from a stored column, not directly from the extractor. Failures are
// logged, never propagated: cleanup runs after commit and has nothing left
// to roll back.
func deleteExtractedTree(ctx context.Context, store storage.Store, log *logger.Logger, contentRoot, extractedPath string) {
  if extractedPath == "" || strings.HasPrefix(extractedPath, "/") || strings.Contains(extractedPath, "..") {
    log.Warn("Refusing to delete suspicious extracted path", "path", extractedPath)
    return
  }
  prefix := strings.TrimSuffix(contentRoot, "/") + "/" + extractedPath
  files, err := listTreeFiles(ctx, store, prefix)
  if err != nil {
    log.Error("Failed to list extracted tree for cleanup", "prefix", prefix, "error", err)
    return
  }

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(8)
  for key := range files {
    key := key
    g.Go(func() error {
      if err := store.Delete(gctx, key); err != nil {
        log.Warn("Failed to delete extracted file", "key", key, "error", err)
      }
      return nil
    })
  }
  _ = g.Wait()
  log.Info("Deleted extracted content tree", "prefix", prefix, "files", len(files))
}
