package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/site-builder/internal/models"
)

const authorColumns = `a.id, a.name, a.logo, a.description, a.image, a.url`

// AuthorRepository stores the author linked one-to-one with a website.
type AuthorRepository struct {
	db *sqlx.DB
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(db *sqlx.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

// GetForWebsite returns the website's author, or models.ErrNotFound.
func (r *AuthorRepository) GetForWebsite(ctx context.Context, websiteID int64) (*models.Author, error) {
	a := &models.Author{}
	query := `SELECT ` + authorColumns + `
		FROM authors a
		JOIN websites w ON w.author_id = a.id
		WHERE w.id = $1`

	if err := r.db.GetContext(ctx, a, query, websiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return a, nil
}

// Save updates the linked author, or creates one and links it.
func (r *AuthorRepository) Save(ctx context.Context, websiteID int64, req *models.AuthorRequest) (*models.Author, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin author transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var authorID sql.NullInt64
	err = tx.GetContext(ctx, &authorID, `SELECT author_id FROM websites WHERE id = $1 FOR UPDATE`, websiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load website author: %w", err)
	}

	a := &models.Author{}
	if authorID.Valid {
		query := `
			UPDATE authors SET name = $2, logo = $3, description = $4, image = $5, url = $6
			WHERE id = $1
			RETURNING id, name, logo, description, image, url`
		err = tx.QueryRowxContext(ctx, query,
			authorID.Int64, req.Name, req.Logo, req.Description, req.Image, req.URL).StructScan(a)
	} else {
		query := `
			INSERT INTO authors (name, logo, description, image, url)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, name, logo, description, image, url`
		err = tx.QueryRowxContext(ctx, query,
			req.Name, req.Logo, req.Description, req.Image, req.URL).StructScan(a)
		if err == nil {
			_, err = tx.ExecContext(ctx, `UPDATE websites SET author_id = $1, updated_at = NOW() WHERE id = $2`, a.ID, websiteID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save author: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit author transaction: %w", err)
	}
	return a, nil
}
