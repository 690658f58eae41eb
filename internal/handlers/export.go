package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/export"
	"github.com/jonesrussell/site-builder/internal/github"
	"github.com/jonesrussell/site-builder/internal/models"
)

// Exporter runs the export pipeline.
type Exporter interface {
	Archive(ctx context.Context, websiteID int64, ownerID string) (*export.ArchiveFile, error)
	Publish(ctx context.Context, websiteID int64, ownerID string, req models.PublishRequest) (*export.PublishResult, error)
}

// RepoLister lists the authenticated user's repositories.
type RepoLister interface {
	ListRepos(ctx context.Context) ([]github.Repo, error)
}

type ExportHandler struct {
	websites WebsiteGetter
	exporter Exporter
	repos    RepoLister
	logger   logger.Logger
}

// NewExportHandler creates the export handler. repos may be nil when
// GitHub is not configured.
func NewExportHandler(websites WebsiteGetter, exporter Exporter, repos RepoLister, log logger.Logger) *ExportHandler {
	return &ExportHandler{
		websites: websites,
		exporter: exporter,
		repos:    repos,
		logger:   log,
	}
}

// Download streams the site bundle as {domain}.zip.
func (h *ExportHandler) Download(c *gin.Context) {
	who, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "website")
	if !ok {
		return
	}

	file, err := h.exporter.Archive(c.Request.Context(), id, who.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, h.logger).Error("Export failed", logger.Int64("website_id", id), logger.Error(err))
		}
		handleRepositoryError(c, err, "Website", "export")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			requestLog(c, h.logger).Warn("Export cleanup failed", logger.Int64("website_id", id), logger.Error(closeErr))
		}
	}()

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.File(file.Path)
}

// Repos lists repositories for the publish form.
func (h *ExportHandler) Repos(c *gin.Context) {
	if _, _, ok := loadWebsite(c, h.websites, h.logger); !ok {
		return
	}
	if h.repos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": export.ErrPublishDisabled.Error()})
		return
	}

	repos, err := h.repos.ListRepos(c.Request.Context())
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list GitHub repositories", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list GitHub repositories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"repos": repos,
		"count": len(repos),
	})
}

// Publish pushes the site bundle to a GitHub repository.
func (h *ExportHandler) Publish(c *gin.Context) {
	who, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id", "website")
	if !ok {
		return
	}

	var req models.PublishRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.exporter.Publish(c.Request.Context(), id, who.ID, req)
	if err != nil {
		h.handlePublishError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ExportHandler) handlePublishError(c *gin.Context, id int64, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
	case errors.Is(err, github.ErrRepoRequired):
		respondValidation(c, models.FieldErrors{"repo_name": err.Error()})
	case errors.Is(err, github.ErrConnectedRepoURL):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, github.ErrNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "GitHub repository not found"})
	case errors.Is(err, export.ErrPublishDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		requestLog(c, h.logger).Error("Publish failed", logger.Int64("website_id", id), logger.Error(err))
		// Remote errors may echo the token-bearing URL, so only log them.
		c.JSON(http.StatusBadGateway, gin.H{"error": "Publish failed"})
	}
}
