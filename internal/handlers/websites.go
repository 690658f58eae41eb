package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/models"
)

// WebsiteStore persists websites.
type WebsiteStore interface {
	Create(ctx context.Context, w *models.Website) (*models.Website, error)
	List(ctx context.Context, ownerID string) ([]models.Website, error)
	Get(ctx context.Context, id int64, ownerID string) (*models.Website, error)
	Update(ctx context.Context, w *models.Website) (*models.Website, error)
	SetAsset(ctx context.Context, id int64, ownerID string, kind models.AssetKind, ref string) error
	Delete(ctx context.Context, id int64, ownerID string) error
}

// AuthorStore persists the website author.
type AuthorStore interface {
	GetForWebsite(ctx context.Context, websiteID int64) (*models.Author, error)
	Save(ctx context.Context, websiteID int64, req *models.AuthorRequest) (*models.Author, error)
}

// UploadConfig controls branding uploads.
type UploadConfig struct {
	// MediaRoot receives uploads under websites/.
	MediaRoot string
	MaxBytes  int64
}

const assetSubdir = "websites"

var uploadExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".bmp": true,
}

type WebsiteHandler struct {
	websites WebsiteStore
	authors  AuthorStore
	uploads  UploadConfig
	logger   logger.Logger
}

func NewWebsiteHandler(websites WebsiteStore, authors AuthorStore, uploads UploadConfig, log logger.Logger) *WebsiteHandler {
	return &WebsiteHandler{
		websites: websites,
		authors:  authors,
		uploads:  uploads,
		logger:   log,
	}
}

func (h *WebsiteHandler) List(c *gin.Context) {
	who, ok := currentOwner(c)
	if !ok {
		return
	}

	websites, err := h.websites.List(c.Request.Context(), who.ID)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list websites", logger.String("owner_id", who.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list websites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"websites": websites,
		"count":    len(websites),
	})
}

// Create adds a website together with its Home page.
func (h *WebsiteHandler) Create(c *gin.Context) {
	who, ok := currentOwner(c)
	if !ok {
		return
	}

	var req models.WebsiteCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondValidation(c, models.FieldErrors{"name": "must not be empty"})
		return
	}

	w, err := h.websites.Create(c.Request.Context(), models.NewWebsite(who.ID, who.Name, strings.TrimSpace(req.Name), req.Domain))
	if err != nil {
		requestLog(c, h.logger).Error("Failed to create website", logger.String("name", req.Name), logger.Error(err))
		handleRepositoryError(c, err, "Website", "create")
		return
	}

	requestLog(c, h.logger).Info("Website created",
		logger.Int64("website_id", w.ID),
		logger.String("domain", w.Domain),
	)
	c.JSON(http.StatusCreated, w)
}

func (h *WebsiteHandler) Get(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w)
}

// Update applies general site settings.
func (h *WebsiteHandler) Update(c *gin.Context) {
	var req models.WebsiteSettingsRequest
	h.update(c, &req, func() error { return req.Validate() }, req.Apply)
}

func (h *WebsiteHandler) UpdateTracking(c *gin.Context) {
	var req models.TrackingRequest
	h.update(c, &req, nil, req.Apply)
}

func (h *WebsiteHandler) UpdateForm(c *gin.Context) {
	var req models.FormSettingsRequest
	h.update(c, &req, nil, req.Apply)
}

// update loads the owned website, binds req, validates and applies it.
// The body is bound before validation so check sees the decoded request.
func (h *WebsiteHandler) update(c *gin.Context, req any, check func() error, apply func(*models.Website)) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	if !bindJSON(c, req) {
		return
	}
	if check != nil && !validate(c, check()) {
		return
	}

	apply(w)
	updated, err := h.websites.Update(c.Request.Context(), w)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to update website", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Website", "update")
		return
	}

	requestLog(c, h.logger).Info("Website updated", logger.Int64("website_id", w.ID))
	c.JSON(http.StatusOK, updated)
}

func (h *WebsiteHandler) Delete(c *gin.Context) {
	w, who, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	if err := h.websites.Delete(c.Request.Context(), w.ID, who.ID); err != nil {
		requestLog(c, h.logger).Error("Failed to delete website", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Website", "delete")
		return
	}

	requestLog(c, h.logger).Info("Website deleted", logger.Int64("website_id", w.ID))
	c.Status(http.StatusNoContent)
}

// UploadAsset stores a logo, favicon or heading image under the media root.
func (h *WebsiteHandler) UploadAsset(c *gin.Context) {
	w, who, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	kind := models.AssetKind(c.Param("kind"))
	if _, valid := kind.Column(); !valid {
		respondValidation(c, models.FieldErrors{"kind": "must be logo, favicon or heading"})
		return
	}

	if h.uploads.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes)
	}
	file, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, models.FieldErrors{"file": "an image file is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !uploadExtensions[ext] {
		respondValidation(c, models.FieldErrors{"file": "unsupported image type " + ext})
		return
	}

	name := fmt.Sprintf("%d-%s%s", w.ID, kind, ext)
	dir := filepath.Join(h.uploads.MediaRoot, assetSubdir)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		requestLog(c, h.logger).Error("Failed to create media dir", logger.String("dir", dir), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	if err = c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		requestLog(c, h.logger).Error("Failed to save upload", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	ref := assetSubdir + "/" + name
	if err = h.websites.SetAsset(c.Request.Context(), w.ID, who.ID, kind, ref); err != nil {
		requestLog(c, h.logger).Error("Failed to record upload", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Website", "update")
		return
	}

	requestLog(c, h.logger).Info("Website asset uploaded",
		logger.Int64("website_id", w.ID),
		logger.String("kind", string(kind)),
		logger.Int64("bytes", file.Size),
	)
	c.JSON(http.StatusOK, gin.H{"kind": kind, "ref": ref})
}

func (h *WebsiteHandler) GetAuthor(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	author, err := h.authors.GetForWebsite(c.Request.Context(), w.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, h.logger).Error("Failed to get author", logger.Int64("website_id", w.ID), logger.Error(err))
		}
		handleRepositoryError(c, err, "Author", "get")
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *WebsiteHandler) SaveAuthor(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	var req models.AuthorRequest
	if !bindJSON(c, &req) || !validate(c, req.Validate()) {
		return
	}

	author, err := h.authors.Save(c.Request.Context(), w.ID, &req)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to save author", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Author", "save")
		return
	}
	c.JSON(http.StatusOK, author)
}
