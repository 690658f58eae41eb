package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/site-builder/internal/models"
)

// MenuRepository stores the header and footer menu of each website.
type MenuRepository struct {
	db *sqlx.DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *sqlx.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Get returns the stored menu, or models.ErrNotFound when none was saved.
func (r *MenuRepository) Get(ctx context.Context, websiteID int64, t models.MenuType) (*models.Menu, error) {
	m := &models.Menu{}
	query := `SELECT id, website_id, type, content, updated_at FROM menus WHERE website_id = $1 AND type = $2`

	if err := r.db.GetContext(ctx, m, query, websiteID, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	return m, nil
}

// Upsert saves the menu content, replacing any previous content.
func (r *MenuRepository) Upsert(ctx context.Context, websiteID int64, t models.MenuType, content string) (*models.Menu, error) {
	m := &models.Menu{}
	query := `
		INSERT INTO menus (website_id, type, content, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (website_id, type)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
		RETURNING id, website_id, type, content, updated_at
	`

	if err := r.db.QueryRowxContext(ctx, query, websiteID, t, content).StructScan(m); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}
	return m, nil
}
