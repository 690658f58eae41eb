package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/importer"
	"github.com/jonesrussell/site-builder/internal/markup"
	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/jonesrussell/site-builder/internal/snapshot"
)

// PageStore persists pages of a website.
type PageStore interface {
	List(ctx context.Context, websiteID int64) ([]models.Page, error)
	Get(ctx context.Context, websiteID, pageID int64) (*models.Page, error)
	Create(ctx context.Context, websiteID int64, req *models.PageRequest) (*models.Page, error)
	Update(ctx context.Context, websiteID, pageID int64, req *models.PageRequest) (*models.Page, error)
	Delete(ctx context.Context, websiteID, pageID int64) error
}

type PageHandler struct {
	websites WebsiteGetter
	pages    PageStore
	logger   logger.Logger
}

func NewPageHandler(websites WebsiteGetter, pages PageStore, log logger.Logger) *PageHandler {
	return &PageHandler{
		websites: websites,
		pages:    pages,
		logger:   log,
	}
}

func (h *PageHandler) List(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	pages, err := h.pages.List(c.Request.Context(), w.ID)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list pages", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pages": pages,
		"count": len(pages),
	})
}

func (h *PageHandler) Get(c *gin.Context) {
	_, page, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Create(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	var req models.PageRequest
	if !bindJSON(c, &req) || !validate(c, req.Validate()) {
		return
	}

	page, err := h.pages.Create(c.Request.Context(), w.ID, &req)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to create page", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Page", "create")
		return
	}

	requestLog(c, h.logger).Info("Page created",
		logger.Int64("website_id", w.ID),
		logger.Int64("page_id", page.ID),
		logger.String("slug", page.Slug),
	)
	c.JSON(http.StatusCreated, page)
}

func (h *PageHandler) Update(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	pageID, ok := parseID(c, "pageId", "page")
	if !ok {
		return
	}

	var req models.PageRequest
	if !bindJSON(c, &req) || !validate(c, req.Validate()) {
		return
	}

	page, err := h.pages.Update(c.Request.Context(), w.ID, pageID, &req)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, h.logger).Error("Failed to update page", logger.Int64("page_id", pageID), logger.Error(err))
		}
		handleRepositoryError(c, err, "Page", "update")
		return
	}

	requestLog(c, h.logger).Info("Page updated", logger.Int64("page_id", page.ID), logger.String("slug", page.Slug))
	c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Delete(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	pageID, ok := parseID(c, "pageId", "page")
	if !ok {
		return
	}

	if err := h.pages.Delete(c.Request.Context(), w.ID, pageID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, h.logger).Error("Failed to delete page", logger.Int64("page_id", pageID), logger.Error(err))
		}
		handleRepositoryError(c, err, "Page", "delete")
		return
	}

	requestLog(c, h.logger).Info("Page deleted", logger.Int64("page_id", pageID))
	c.Status(http.StatusNoContent)
}

// Preview renders the page body the way the exported site decorates it.
func (h *PageHandler) Preview(c *gin.Context) {
	w, page, ok := h.load(c)
	if !ok {
		return
	}

	pages, err := h.pages.List(c.Request.Context(), w.ID)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list pages", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render preview"})
		return
	}

	body := markup.Decorate(page.Content, snapshot.NofollowURLs(pages))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// Import creates pages from an uploaded .xlsx. Invalid rows are reported
// and skipped; valid rows are saved one by one.
func (h *PageHandler) Import(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, models.FieldErrors{"file": "a spreadsheet file is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	defer f.Close()

	rows, importErrs := importer.ParseExcelFile(f)

	created := make([]*models.Page, 0, len(rows))
	for _, row := range rows {
		page, createErr := h.pages.Create(c.Request.Context(), w.ID, importer.ToRequest(row))
		if createErr != nil {
			requestLog(c, h.logger).Warn("Import row failed",
				logger.Int64("website_id", w.ID),
				logger.Int("row", row.Row),
				logger.Error(createErr),
			)
			importErrs = append(importErrs, importer.ImportError{Row: row.Row, Error: "failed to save page"})
			continue
		}
		created = append(created, page)
	}

	requestLog(c, h.logger).Info("Pages imported",
		logger.Int64("website_id", w.ID),
		logger.Int("created", len(created)),
		logger.Int("errors", len(importErrs)),
	)
	if importErrs == nil {
		importErrs = []importer.ImportError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"created": len(created),
		"pages":   created,
		"errors":  importErrs,
	})
}

// load resolves :id and :pageId for the caller.
func (h *PageHandler) load(c *gin.Context) (*models.Website, *models.Page, bool) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return nil, nil, false
	}
	pageID, ok := parseID(c, "pageId", "page")
	if !ok {
		return nil, nil, false
	}

	page, err := h.pages.Get(c.Request.Context(), w.ID, pageID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, h.logger).Error("Failed to get page", logger.Int64("page_id", pageID), logger.Error(err))
		}
		handleRepositoryError(c, err, "Page", "get")
		return nil, nil, false
	}
	return w, page, true
}
