package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/courseloom/scorm-backend/internal/logger"
	"github.com/courseloom/scorm-backend/internal/requestdata"
	"github.com/courseloom/scorm-backend/internal/services"
)

type PackageHandler struct {
	log             *logger.Logger
	importService   services.PackageImportService
	packageService  services.PackageService
	progressService services.ProgressService
}

func NewPackageHandler(
	baseLog *logger.Logger,
	importService services.PackageImportService,
	packageService services.PackageService,
	progressService services.ProgressService,
) *PackageHandler {
	return &PackageHandler{
		log:             baseLog.With("handler", "PackageHandler"),
		importService:   importService,
		packageService:  packageService,
		progressService: progressService,
	}
}

// Upload receives the zip as multipart field "package", stages it in a
// temp file and runs the import pipeline.
func (ph *PackageHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("package")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field 'package' is required"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".zip") {
		RespondError(c, http.StatusBadRequest, "invalid_file", fmt.Errorf("expected a .zip archive"))
		return
	}

	tmp, err := os.CreateTemp("", "scorm-upload-*.zip")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		RespondServiceError(c, err)
		return
	}

	pkg, err := ph.importService.ImportPackage(c.Request.Context(), tmpPath)
	if err != nil {
		ph.log.Warn("Package import failed", "filename", fileHeader.Filename, "error", err)
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

func (ph *PackageHandler) List(c *gin.Context) {
	packages, err := ph.packageService.ListPackages(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"packages": packages})
}

func (ph *PackageHandler) Outline(c *gin.Context) {
	packageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	outline, err := ph.packageService.GetOutline(c.Request.Context(), packageID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, outline)
}

func (ph *PackageHandler) Delete(c *gin.Context) {
	packageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := ph.packageService.DeletePackage(c.Request.Context(), packageID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": packageID})
}

// Content serves one file out of the package's extracted tree, so the
// player can load the entry point and its assets.
func (ph *PackageHandler) Content(c *gin.Context) {
	packageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	relPath := strings.TrimPrefix(c.Param("filepath"), "/")
	if relPath == "" {
		RespondError(c, http.StatusBadRequest, "missing_path", fmt.Errorf("file path is required"))
		return
	}
	full, err := ph.packageService.ContentFilePath(c.Request.Context(), packageID, relPath)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	// gin sets Content-Type from the extension
	c.File(filepath.Clean(full))
}

func (ph *PackageHandler) Progress(c *gin.Context) {
	packageID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}
	progress, err := ph.progressService.GetPackageProgress(c.Request.Context(), rd.UserID, packageID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, progress)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid %s: %v", name, err))
		return uuid.Nil, false
	}
	return id, true
}
