package handlers

import (
  "errors"
  "io"
  "mime/multipart"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "github.com/dr-rompecabezas/lms-backend/internal/logger"
  "github.com/dr-rompecabezas/lms-backend/internal/services"
)

type PackageHandler struct {
  scormPackages services.ScormPackageService
  h5pActivities services.H5PActivityService
  log           *logger.Logger
}

func NewPackageHandler(scormPackages services.ScormPackageService, h5pActivities services.H5PActivityService, baseLog *logger.Logger) *PackageHandler {
  return &PackageHandler{
    scormPackages: scormPackages,
    h5pActivities: h5pActivities,
    log:           baseLog.With("handler", "PackageHandler"),
  }
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
  f, err := header.Open()
  if err != nil {
    return nil, err
  }
  defer f.Close()
  return io.ReadAll(f)
}

func isArchiveError(err error) bool {
  return errors.Is(err, services.ErrInvalidArchive) ||
    errors.Is(err, services.ErrCorruptArchive) ||
    errors.Is(err, services.ErrNoManifest) ||
    errors.Is(err, services.ErrNoH5PJSON)
}

func (h *PackageHandler) UploadScormPackage(c *gin.Context) {
  header, err := c.FormFile("package_file")
  if err != nil {
    respondError(c, http.StatusBadRequest, "missing package_file")
    return
  }
  archive, err := readUpload(header)
  if err != nil {
    respondError(c, http.StatusBadRequest, "could not read upload")
    return
  }

  pkg, err := h.scormPackages.Create(c.Request.Context(),
    c.PostForm("title"), c.PostForm("description"), header.Filename, archive)
  if err != nil {
    if isArchiveError(err) {
      respondError(c, http.StatusBadRequest, err.Error())
      return
    }
    h.log.Error("Failed to create SCORM package", "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }

  extracted, err := h.scormPackages.ExtractAndUpdate(c.Request.Context(), pkg, archive)
  if err != nil {
    if isArchiveError(err) {
      respondError(c, http.StatusBadRequest, err.Error())
      return
    }
    h.log.Error("Failed to extract SCORM package", "package_id", pkg.ID, "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusCreated, gin.H{"package": extracted})
}

func (h *PackageHandler) GetScormPackage(c *gin.Context) {
  id, err := uuid.Parse(c.Param("packageID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  pkg, err := h.scormPackages.Get(c.Request.Context(), id)
  if err != nil {
    respondLookupError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"package": pkg, "launch_path": pkg.LaunchPath()})
}

func (h *PackageHandler) DeleteScormPackage(c *gin.Context) {
  id, err := uuid.Parse(c.Param("packageID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  if err := h.scormPackages.Delete(c.Request.Context(), id); err != nil {
    respondLookupError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *PackageHandler) UploadH5PActivity(c *gin.Context) {
  header, err := c.FormFile("package_file")
  if err != nil {
    respondError(c, http.StatusBadRequest, "missing package_file")
    return
  }
  archive, err := readUpload(header)
  if err != nil {
    respondError(c, http.StatusBadRequest, "could not read upload")
    return
  }
  activity, err := h.h5pActivities.Create(c.Request.Context(),
    c.PostForm("title"), c.PostForm("description"), header.Filename, archive)
  if err != nil {
    if isArchiveError(err) {
      respondError(c, http.StatusBadRequest, err.Error())
      return
    }
    h.log.Error("Failed to create H5P activity", "error", err)
    respondError(c, http.StatusInternalServerError, "internal error")
    return
  }
  c.JSON(http.StatusCreated, gin.H{"activity": activity, "content_base_url": activity.ContentBaseURL()})
}

func (h *PackageHandler) ReplaceH5PPackage(c *gin.Context) {
  id, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  header, err := c.FormFile("package_file")
  if err != nil {
    respondError(c, http.StatusBadRequest, "missing package_file")
    return
  }
  archive, err := readUpload(header)
  if err != nil {
    respondError(c, http.StatusBadRequest, "could not read upload")
    return
  }
  activity, err := h.h5pActivities.ReplacePackage(c.Request.Context(), id, header.Filename, archive)
  if err != nil {
    if isArchiveError(err) {
      respondError(c, http.StatusBadRequest, err.Error())
      return
    }
    respondLookupError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"activity": activity, "content_base_url": activity.ContentBaseURL()})
}

func (h *PackageHandler) GetH5PActivity(c *gin.Context) {
  id, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  activity, err := h.h5pActivities.Get(c.Request.Context(), id)
  if err != nil {
    respondLookupError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"activity": activity, "content_base_url": activity.ContentBaseURL()})
}

func (h *PackageHandler) DeleteH5PActivity(c *gin.Context) {
  id, err := uuid.Parse(c.Param("activityID"))
  if err != nil {
    respondError(c, http.StatusNotFound, "not found")
    return
  }
  if err := h.h5pActivities.Delete(c.Request.Context(), id); err != nil {
    respondLookupError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"deleted": true})
}
