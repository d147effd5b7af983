package services

import (
  "bytes"
  "context"
  "encoding/json"
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
  ScormUploadRoot  = "scorm_packages"
  ScormContentRoot = "scorm_content"
)

// ScormPackageService manages the SCORM package lifecycle. Upload is two
// phases: Create persists the record and the archive, ExtractAndUpdate
// unpacks it and fills in the manifest-derived fields. A record whose
// extraction failed stays around with an empty ExtractedPath so the
// archive can be inspected and re-extracted.
type ScormPackageService interface {
  Create(ctx context.Context, title, description, filename string, archive []byte) (*types.ScormPackage, error)
  ExtractAndUpdate(ctx context.Context, pkg *types.ScormPackage, archive []byte) (*types.ScormPackage, error)
  Get(ctx context.Context, id uuid.UUID) (*types.ScormPackage, error)
  Delete(ctx context.Context, id uuid.UUID) error
}

type scormPackageService struct {
  gdb       *gorm.DB
  store     storage.Store
  extractor Extractor
  pkgRepo   repos.ScormPackageRepo
  log       *logger.Logger
}

func NewScormPackageService(
  gdb *gorm.DB,
  store storage.Store,
  extractor Extractor,
  pkgRepo repos.ScormPackageRepo,
  baseLog *logger.Logger,
) ScormPackageService {
  return &scormPackageService{
    gdb:       gdb,
    store:     store,
    extractor: extractor,
    pkgRepo:   pkgRepo,
    log:       baseLog.With("service", "ScormPackageService"),
  }
}

func scormArchiveKey(id uuid.UUID, filename string) string {
  return ScormUploadRoot + "/" + id.String() + "/" + filename
}

func (s *scormPackageService) Create(ctx context.Context, title, description, filename string, archive []byte) (*types.ScormPackage, error) {
  if err := s.extractor.ValidateArchive(archive); err != nil {
    return nil, err
  }

  pkg := &types.ScormPackage{
    ID:          uuid.New(),
    Title:       title,
    Description: description,
  }
  pkg.PackageFile = scormArchiveKey(pkg.ID, filename)

  if err := s.store.Save(ctx, pkg.PackageFile, bytes.NewReader(archive)); err != nil {
    return nil, err
  }
  created, err := s.pkgRepo.Create(ctx, nil, pkg)
  if err != nil {
    return nil, err
  }
  s.log.Info("Created SCORM package", "package_id", created.ID, "file", created.PackageFile)
  return created, nil
}

func (s *scormPackageService) ExtractAndUpdate(ctx context.Context, pkg *types.ScormPackage, archive []byte) (*types.ScormPackage, error) {
  dirName := ExtractionDirName("package", pkg.ID, pkg.PackageFile)
  extraction, err := s.extractor.Extract(ctx, archive, ScormContentRoot, dirName)
  if err != nil {
    return nil, err
  }
  if extraction.ManifestXML == nil {
    return nil, ErrNoManifest
  }
  manifest, err := ParseScormManifest(extraction.ManifestXML)
  if err != nil {
    return nil, err
  }

  fields := map[string]interface{}{
    "extracted_path": dirName,
    "launch_url":     manifest.LaunchURL,
    "version":        manifest.Version,
    "updated_at":     time.Now(),
  }
  if manifestJSON, merr := json.Marshal(map[string]string{
    "title":      manifest.Title,
    "version":    manifest.Version,
    "launch_url": manifest.LaunchURL,
  }); merr == nil {
    fields["manifest_data"] = manifestJSON
  }
  // A blank upload title falls back to the manifest title.
  if pkg.Title == "" && manifest.Title != "" {
    fields["title"] = manifest.Title
  }
  if err := s.pkgRepo.Updates(ctx, nil, pkg.ID, fields); err != nil {
    return nil, err
  }
  s.log.Info("Extracted SCORM package",
    "package_id", pkg.ID,
    "extracted_path", dirName,
    "version", manifest.Version,
    "launch_url", manifest.LaunchURL)
  return s.pkgRepo.GetByID(ctx, nil, pkg.ID)
}

func (s *scormPackageService) Get(ctx context.Context, id uuid.UUID) (*types.ScormPackage, error) {
  return s.pkgRepo.GetByID(ctx, nil, id)
}

// Delete removes the package row and, only after the delete commits,
// removes the archive and the extracted tree from storage.
func (s *scormPackageService) Delete(ctx context.Context, id uuid.UUID) error {
  pkg, err := s.pkgRepo.GetByID(ctx, nil, id)
  if err != nil {
    return err
  }

  return db.RunInTx(ctx, s.gdb, func(tx *gorm.DB, after *db.AfterCommit) error {
    if err := s.pkgRepo.Delete(ctx, tx, id); err != nil {
      return err
    }
    after.OnCommit(func() {
      cleanupCtx := context.Background()
      if pkg.PackageFile != "" {
        if err := s.store.Delete(cleanupCtx, pkg.PackageFile); err != nil {
          s.log.Warn("Failed to delete package archive", "key", pkg.PackageFile, "error", err)
        }
      }
      deleteExtractedTree(cleanupCtx, s.store, s.log, ScormContentRoot, pkg.ExtractedPath)
    })
    return nil
  })
}
