package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/menu"
	"github.com/jonesrussell/site-builder/internal/models"
)

// MenuStore persists menus.
type MenuStore interface {
	Get(ctx context.Context, websiteID int64, t models.MenuType) (*models.Menu, error)
	Upsert(ctx context.Context, websiteID int64, t models.MenuType, content string) (*models.Menu, error)
}

// PageLister lists a website's pages for menu defaults.
type PageLister interface {
	List(ctx context.Context, websiteID int64) ([]models.Page, error)
}

type MenuHandler struct {
	websites WebsiteGetter
	menus    MenuStore
	pages    PageLister
	logger   logger.Logger
}

func NewMenuHandler(websites WebsiteGetter, menus MenuStore, pages PageLister, log logger.Logger) *MenuHandler {
	return &MenuHandler{
		websites: websites,
		menus:    menus,
		pages:    pages,
		logger:   log,
	}
}

// List returns both menus, falling back to default content for menus never
// saved, plus copyable links to every page.
func (h *MenuHandler) List(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}

	pages, err := h.pages.List(c.Request.Context(), w.ID)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list pages", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load menus"})
		return
	}

	out := gin.H{"helper_links": menu.HelperLinks(pages)}
	for _, t := range []models.MenuType{models.MenuHeader, models.MenuFooter} {
		content, loadErr := h.content(c.Request.Context(), w, t, pages)
		if loadErr != nil {
			requestLog(c, h.logger).Error("Failed to get menu", logger.Int64("website_id", w.ID), logger.Error(loadErr))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load menus"})
			return
		}
		out[string(t)] = content
	}
	c.JSON(http.StatusOK, out)
}

func (h *MenuHandler) Save(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	t, ok := menuType(c)
	if !ok {
		return
	}

	var req models.MenuUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.menus.Upsert(c.Request.Context(), w.ID, t, req.Content)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to save menu", logger.Int64("website_id", w.ID), logger.Error(err))
		handleRepositoryError(c, err, "Menu", "save")
		return
	}

	requestLog(c, h.logger).Info("Menu saved", logger.Int64("website_id", w.ID), logger.String("type", string(t)))
	c.JSON(http.StatusOK, m)
}

// Tree returns the parsed menu structure.
func (h *MenuHandler) Tree(c *gin.Context) {
	w, _, ok := loadWebsite(c, h.websites, h.logger)
	if !ok {
		return
	}
	t, ok := menuType(c)
	if !ok {
		return
	}

	pages, err := h.pages.List(c.Request.Context(), w.ID)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to list pages", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load menu"})
		return
	}
	content, err := h.content(c.Request.Context(), w, t, pages)
	if err != nil {
		requestLog(c, h.logger).Error("Failed to get menu", logger.Int64("website_id", w.ID), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load menu"})
		return
	}
	c.JSON(http.StatusOK, menu.Parse(content))
}

func (h *MenuHandler) content(ctx context.Context, w *models.Website, t models.MenuType, pages []models.Page) (string, error) {
	m, err := h.menus.Get(ctx, w.ID, t)
	if errors.Is(err, models.ErrNotFound) {
		return menu.Default(t, pages, w.OwnerName), nil
	}
	if err != nil {
		return "", err
	}
	return menu.Content(m.Content, t, pages, w.OwnerName), nil
}

func menuType(c *gin.Context) (models.MenuType, bool) {
	t := models.MenuType(c.Param("type"))
	if !t.Valid() {
		respondValidation(c, models.FieldErrors{"type": "must be header or footer"})
		return "", false
	}
	return t, true
}
