package services

import (
  "archive/zip"
  "bytes"
  "context"
  "errors"
  "fmt"
  "io"
  "path"
  "strings"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/storage"
)

// ErrInvalidArchive means the ZIP central directory could not be read.
// ErrCorruptArchive means a member failed its CRC check. Both surface to
// the uploader as validation failures before anything is persisted.
var (
  ErrInvalidArchive = errors.New("uploaded file is not a valid ZIP archive")
  ErrCorruptArchive = errors.New("uploaded file is corrupted")
)

const (
  scormManifestName = "imsmanifest.xml"
  h5pJSONName       = "h5p.json"
)

// Extraction is the result of unpacking one content package into the store.
type Extraction struct {
  DirName         string
  Files           map[string]struct{}
  ManifestXML     []byte
  H5PJSON         []byte
  HasLibraryFiles bool
}

type Extractor interface {
  // ValidateArchive checks ZIP integrity including per-member CRC, so a
  // corrupted upload fails as user input, not as a server fault mid-save.
  ValidateArchive(archive []byte) error
  Extract(ctx context.Context, archive []byte, contentRoot, dirName string) (*Extraction, error)
}

type extractor struct {
  store storage.Store
  log   *logger.Logger
}

func NewExtractor(store storage.Store, baseLog *logger.Logger) Extractor {
  return &extractor{store: store, log: baseLog.With("service", "Extractor")}
}

// ExtractionDirName computes the deterministic extraction directory for a
// package: {prefix}_{id}_{archive basename without extension}. Stable
// across re-extractions of the same archive name, which is what makes
// replacement cleanup and debugging by path possible.
func ExtractionDirName(prefix string, id uuid.UUID, packageFile string) string {
  base := path.Base(strings.ReplaceAll(packageFile, "\\", "/"))
  base = strings.TrimSuffix(base, path.Ext(base))
  return fmt.Sprintf("%s_%s_%s", prefix, id, base)
}

// normalizeMemberName maps a ZIP member name to a safe relative path, or
// reports it unsafe. Backslashes are folded to forward slashes first to
// catch Windows-style traversal in crafted archives; names that are
// absolute, escape upward, or collapse to "." (e.g. "a/..") are rejected.
func normalizeMemberName(name string) (string, bool) {
  normalized := strings.ReplaceAll(name, "\\", "/")
  normalized = path.Clean(normalized)
  if normalized == "." || normalized == "" {
    return "", false
  }
  if strings.HasPrefix(normalized, "/") || strings.HasPrefix(normalized, "..") || strings.Contains(normalized, "/../") {
    return "", false
  }
  return normalized, true
}

func (e *extractor) ValidateArchive(archive []byte) error {
  zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
  if err != nil {
    return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
  }
  for _, member := range zr.File {
    if member.FileInfo().IsDir() {
      continue
    }
    rc, err := member.Open()
    if err != nil {
      return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
    }
    // Reading to EOF forces the CRC check.
    _, err = io.Copy(io.Discard, rc)
    _ = rc.Close()
    if err != nil {
      return fmt.Errorf("%w (CRC error in %q)", ErrCorruptArchive, member.Name)
    }
  }
  return nil
}

// Extract unpacks every safe member under {contentRoot}/{dirName}/ via the
// storage abstraction, capturing well-known metadata files in the same
// pass. Suspicious members are skipped with a warning; extraction
// continues. No ceiling is applied to extracted bytes or entry count.
func (e *extractor) Extract(ctx context.Context, archive []byte, contentRoot, dirName string) (*Extraction, error) {
  zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
  if err != nil {
    return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
  }

  result := &Extraction{
    DirName: dirName,
    Files:   map[string]struct{}{},
  }
  contentRoot = strings.TrimSuffix(contentRoot, "/")

  for _, member := range zr.File {
    if member.FileInfo().IsDir() {
      continue
    }

    normalized, ok := normalizeMemberName(member.Name)
    if !ok {
      e.log.Warn("Skipping suspicious ZIP member", "member", member.Name)
      continue
    }

    rc, err := member.Open()
    if err != nil {
      return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
    }
    data, err := io.ReadAll(rc)
    _ = rc.Close()
    if err != nil {
      return nil, fmt.Errorf("%w (CRC error in %q)", ErrCorruptArchive, member.Name)
    }

    switch member.Name {
    case scormManifestName:
      result.ManifestXML = data
    case h5pJSONName:
      result.H5PJSON = data
    }

    // Library directories (e.g. H5P.InteractiveVideo-1.27/) live outside
    // content/. A package with none is a "reuse" export that the
    // standalone player cannot run.
    if strings.Contains(normalized, "/") && !strings.HasPrefix(normalized, "content/") {
      result.HasLibraryFiles = true
    }

    key := contentRoot + "/" + dirName + "/" + normalized
    // Delete first so backends that auto-rename on collision keep
    // canonical names across re-extraction.
    if err := e.store.Delete(ctx, key); err != nil {
      e.log.Warn("Failed to delete existing object before write", "key", key, "error", err)
    }
    if err := e.store.Save(ctx, key, bytes.NewReader(data)); err != nil {
      return nil, fmt.Errorf("Failed to store extracted file %q: %w", normalized, err)
    }
    result.Files[key] = struct{}{}
  }

  return result, nil
}
