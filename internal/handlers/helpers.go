// Package handlers implements the site-builder HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/site-builder/infrastructure/jwt"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/models"
)

const validationFailed = "validation failed"

// owner is the authenticated website owner.
type owner struct {
	ID   string
	Name string
}

// currentOwner reads the owner from the JWT claims, answering 401 when absent.
func currentOwner(c *gin.Context) (owner, bool) {
	claims, ok := jwt.GetClaims(c)
	if !ok || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return owner{}, false
	}
	return owner{ID: claims.Subject, Name: claims.Name}, true
}

// parseID parses a numeric path parameter.
func parseID(c *gin.Context, paramName, entityType string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + entityType + " ID format"})
		return 0, false
	}
	return id, true
}

// WebsiteGetter is the ownership check shared by every website-scoped route.
type WebsiteGetter interface {
	Get(ctx context.Context, id int64, ownerID string) (*models.Website, error)
}

// loadWebsite resolves :id to a website owned by the caller.
func loadWebsite(c *gin.Context, websites WebsiteGetter, log logger.Logger) (*models.Website, owner, bool) {
	who, ok := currentOwner(c)
	if !ok {
		return nil, owner{}, false
	}
	id, ok := parseID(c, "id", "website")
	if !ok {
		return nil, owner{}, false
	}
	w, err := websites.Get(c.Request.Context(), id, who.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			requestLog(c, log).Error("Failed to load website", logger.Int64("website_id", id), logger.Error(err))
		}
		handleRepositoryError(c, err, "Website", "get")
		return nil, owner{}, false
	}
	return w, who, true
}

// requestLog returns the request-scoped logger installed by the server's
// request-ID middleware, falling back to base.
func requestLog(c *gin.Context, base logger.Logger) logger.Logger {
	return logger.FromContext(c.Request.Context(), base)
}

// handleRepositoryError handles common repository errors
func handleRepositoryError(c *gin.Context, err error, entityType, operation string) {
	var fields models.FieldErrors
	switch {
	case errors.As(err, &fields):
		respondValidation(c, fields)
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entityType + " not found"})
	case errors.Is(err, models.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": entityType + " already exists"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + operation + " " + entityType})
	}
}

// respondValidation answers 400 with per-field messages.
func respondValidation(c *gin.Context, fields models.FieldErrors) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validationFailed, "fields": fields})
}

// bindJSON decodes the body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidation(c, models.FieldErrors{"body": err.Error()})
		return false
	}
	return true
}

// validate answers 400 when err carries field errors.
func validate(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	var fields models.FieldErrors
	if errors.As(err, &fields) {
		respondValidation(c, fields)
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
	return false
}
