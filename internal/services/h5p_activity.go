package services

import (
  "bytes"
  "context"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/dr-rompecabezas/lms-backend/internal/db"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/repos"
  "github.com/dr-rompecabezas/lms-backend/internal/storage"
  "github.com/dr-rompecabezas/lms-backend/internal/types"
)

const (
  H5PUploadRoot  = "h5p_packages"
  H5PContentRoot = "h5p_content"
)

var ErrNoH5PJSON = errors.New("package has no h5p.json")

type H5PActivityService interface {
  Create(ctx context.Context, title, description, filename string, archive []byte) (*types.H5PActivity, error)
  // ReplacePackage swaps an activity's package for a new archive. The
  // superseded archive and extracted tree are removed after the update
  // commits; when old and new archives share an extraction directory the
  // stale files are diffed out immediately after re-extraction instead.
  ReplacePackage(ctx context.Context, id uuid.UUID, filename string, archive []byte) (*types.H5PActivity, error)
  Get(ctx context.Context, id uuid.UUID) (*types.H5PActivity, error)
  Delete(ctx context.Context, id uuid.UUID) error
}

type h5pActivityService struct {
  gdb          *gorm.DB
  store        storage.Store
  extractor    Extractor
  activityRepo repos.H5PActivityRepo
  log          *logger.Logger
}

func NewH5PActivityService(
  gdb *gorm.DB,
  store storage.Store,
  extractor Extractor,
  activityRepo repos.H5PActivityRepo,
  baseLog *logger.Logger,
) H5PActivityService {
  return &h5pActivityService{
    gdb:          gdb,
    store:        store,
    extractor:    extractor,
    activityRepo: activityRepo,
    log:          baseLog.With("service", "H5PActivityService"),
  }
}

func h5pArchiveKey(id uuid.UUID, filename string) string {
  return H5PUploadRoot + "/" + id.String() + "/" + filename
}

// extractH5P unpacks the archive and returns the extraction together with
// its parsed h5p.json. A package without library directories is logged as
// a reuse-only export; the standalone player cannot run it but authors may
// still want the record for re-upload.
func (s *h5pActivityService) extractH5P(ctx context.Context, id uuid.UUID, archiveKey string, archive []byte) (*Extraction, *H5PMeta, error) {
  dirName := ExtractionDirName("h5p", id, archiveKey)
  extraction, err := s.extractor.Extract(ctx, archive, H5PContentRoot, dirName)
  if err != nil {
    return nil, nil, err
  }
  if extraction.H5PJSON == nil {
    return nil, nil, ErrNoH5PJSON
  }
  meta, err := ParseH5PMeta(extraction.H5PJSON)
  if err != nil {
    return nil, nil, err
  }
  if !extraction.HasLibraryFiles {
    s.log.Warn("H5P package has no library files; it cannot be played standalone",
      "activity_id", id, "main_library", meta.MainLibrary)
  }
  return extraction, meta, nil
}

func (s *h5pActivityService) Create(ctx context.Context, title, description, filename string, archive []byte) (*types.H5PActivity, error) {
  if err := s.extractor.ValidateArchive(archive); err != nil {
    return nil, err
  }

  activity := &types.H5PActivity{
    ID:          uuid.New(),
    Title:       title,
    Description: description,
  }
  activity.PackageFile = h5pArchiveKey(activity.ID, filename)

  if err := s.store.Save(ctx, activity.PackageFile, bytes.NewReader(archive)); err != nil {
    return nil, err
  }
  created, err := s.activityRepo.Create(ctx, nil, activity)
  if err != nil {
    return nil, err
  }

  extraction, meta, err := s.extractH5P(ctx, created.ID, created.PackageFile, archive)
  if err != nil {
    return nil, err
  }
  fields := map[string]interface{}{
    "extracted_path": extraction.DirName,
    "main_library":   meta.MainLibrary,
    "h5p_json":       extraction.H5PJSON,
    "updated_at":     time.Now(),
  }
  if created.Title == "" && meta.Title != "" {
    fields["title"] = meta.Title
  }
  if err := s.activityRepo.Updates(ctx, nil, created.ID, fields); err != nil {
    return nil, err
  }
  s.log.Info("Created H5P activity",
    "activity_id", created.ID,
    "extracted_path", extraction.DirName,
    "main_library", meta.MainLibrary)
  return s.activityRepo.GetByID(ctx, nil, created.ID)
}

func (s *h5pActivityService) ReplacePackage(ctx context.Context, id uuid.UUID, filename string, archive []byte) (*types.H5PActivity, error) {
  if err := s.extractor.ValidateArchive(archive); err != nil {
    return nil, err
  }

  activity, err := s.activityRepo.GetByID(ctx, nil, id)
  if err != nil {
    return nil, err
  }
  oldKey := activity.PackageFile
  oldExtracted := activity.ExtractedPath

  newKey := h5pArchiveKey(id, filename)
  newDir := ExtractionDirName("h5p", id, newKey)
  samePath := oldExtracted != "" && oldExtracted == newDir

  // When re-extracting into the same directory, snapshot the old tree
  // first so files the new archive no longer ships can be diffed out.
  var oldFiles map[string]struct{}
  if samePath {
    oldFiles, err = listTreeFiles(ctx, s.store, H5PContentRoot+"/"+oldExtracted)
    if err != nil {
      return nil, err
    }
  }

  if err := s.store.Save(ctx, newKey, bytes.NewReader(archive)); err != nil {
    return nil, err
  }

  extraction, meta, err := s.extractH5P(ctx, id, newKey, archive)
  if err != nil {
    return nil, err
  }

  if samePath {
    for key := range oldFiles {
      if _, kept := extraction.Files[key]; kept {
        continue
      }
      if err := s.store.Delete(ctx, key); err != nil {
        s.log.Warn("Failed to delete stale file", "key", key, "error", err)
      }
    }
  }

  err = db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    fields := map[string]interface{}{
      "package_file":   newKey,
      "extracted_path": extraction.DirName,
      "main_library":   meta.MainLibrary,
      "h5p_json":       extraction.H5PJSON,
      "updated_at":     time.Now(),
    }
    if err := s.activityRepo.Updates(ctx, tx, id, fields); err != nil {
      return err
    }
    after.OnCommit(func() {
      cleanupCtx := context.Background()
      if oldKey != "" && oldKey != newKey {
        if err := s.store.Delete(cleanupCtx, oldKey); err != nil {
          s.log.Warn("Failed to delete superseded archive", "key", oldKey, "error", err)
        }
      }
      if !samePath {
        deleteExtractedTree(cleanupCtx, s.store, s.log, H5PContentRoot, oldExtracted)
      }
    })
    return nil
  })
  if err != nil {
    return nil, err
  }
  s.log.Info("Replaced H5P package",
    "activity_id", id,
    "old_extracted_path", oldExtracted,
    "new_extracted_path", extraction.DirName)
  return s.activityRepo.GetByID(ctx, nil, id)
}

func (s *h5pActivityService) Get(ctx context.Context, id uuid.UUID) (*types.H5PActivity, error) {
  return s.activityRepo.GetByID(ctx, nil, id)
}

func (s *h5pActivityService) Delete(ctx context.Context, id uuid.UUID) error {
  activity, err := s.activityRepo.GetByID(ctx, nil, id)
  if err != nil {
    return err
  }

  return db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    if err := s.activityRepo.Delete(ctx, tx, id); err != nil {
      return err
    }
    after.OnCommit(func() {
      cleanupCtx := context.Background()
      if activity.PackageFile != "" {
        if err := s.store.Delete(cleanupCtx, activity.PackageFile); err != nil {
          s.log.Warn("Failed to delete package archive", "key", activity.PackageFile, "error", err)
        }
      }
      deleteExtractedTree(cleanupCtx, s.store, s.log, H5PContentRoot, activity.ExtractedPath)
    })
    return nil
  })
}
