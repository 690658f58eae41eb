package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/jonesrussell/site-builder/internal/slug"
)

const pageColumns = `
	id, website_id, title, content, slug, is_homepage, nofollow, meta_description,
	date_published, date_modified, breadcrumb, created_at, updated_at`

// PageRepository stores pages. Every call is scoped to a website the caller
// has already authorized.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// List returns the website's pages ordered by slug.
func (r *PageRepository) List(ctx context.Context, websiteID int64) ([]models.Page, error) {
	pages := []models.Page{}
	query := `SELECT ` + pageColumns + ` FROM pages WHERE website_id = $1 ORDER BY slug ASC`

	if err := r.db.SelectContext(ctx, &pages, query, websiteID); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// Get returns one page of the website.
func (r *PageRepository) Get(ctx context.Context, websiteID, pageID int64) (*models.Page, error) {
	page := &models.Page{}
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND website_id = $2`

	if err := r.db.GetContext(ctx, page, query, pageID, websiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// Create saves a new page. The slug is derived from the title when blank
// and suffixed until unique within the website.
func (r *PageRepository) Create(ctx context.Context, websiteID int64, req *models.PageRequest) (*models.Page, error) {
	now := time.Now()
	page := &models.Page{
		WebsiteID:       websiteID,
		Title:           req.Title,
		Content:         req.Content,
		IsHomepage:      req.IsHomepage,
		Nofollow:        req.Nofollow,
		MetaDescription: req.MetaDescription,
		DatePublished:   timeOr(req.DatePublished, now),
		DateModified:    timeOr(req.DateModified, now),
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin page transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err = prepareSave(ctx, tx, page, req.Slug); err != nil {
		return nil, err
	}
	if err = insertPage(ctx, tx, page, now); err != nil {
		return nil, err
	}
	if page.IsHomepage {
		if err = clearHomepage(ctx, tx, websiteID, page.ID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page transaction: %w", err)
	}
	return page, nil
}

// Update saves an existing page. date_published keeps its value (or falls
// back to the creation time) unless supplied; date_modified becomes now.
func (r *PageRepository) Update(ctx context.Context, websiteID, pageID int64, req *models.PageRequest) (*models.Page, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin page transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	page := &models.Page{}
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1 AND website_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, page, query, pageID, websiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	now := time.Now()
	published := page.DatePublished
	if req.DatePublished != nil {
		published = req.DatePublished
	}
	if published == nil {
		published = timeOr(nil, page.CreatedAt)
	}

	page.Title = req.Title
	page.Content = req.Content
	page.IsHomepage = req.IsHomepage
	page.Nofollow = req.Nofollow
	page.MetaDescription = req.MetaDescription
	page.DatePublished = published
	page.DateModified = &now

	if err = prepareSave(ctx, tx, page, req.Slug); err != nil {
		return nil, err
	}
	if page.IsHomepage {
		if err = clearHomepage(ctx, tx, websiteID, page.ID); err != nil {
			return nil, err
		}
	}

	update := `
		UPDATE pages SET
			title = $3, content = $4, slug = $5, is_homepage = $6, nofollow = $7,
			meta_description = $8, date_published = $9, date_modified = $10,
			breadcrumb = $11, updated_at = $12
		WHERE id = $1 AND website_id = $2
		RETURNING ` + pageColumns

	err = tx.QueryRowxContext(ctx, update,
		page.ID, websiteID, page.Title, page.Content, page.Slug, page.IsHomepage, page.Nofollow,
		page.MetaDescription, page.DatePublished, page.DateModified, page.Breadcrumb, now,
	).StructScan(page)
	if err != nil {
		return nil, mapWriteError("update page", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page transaction: %w", err)
	}
	return page, nil
}

// Delete removes one page of the website.
func (r *PageRepository) Delete(ctx context.Context, websiteID, pageID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1 AND website_id = $2`, pageID, websiteID)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SlugRename is one change made by FixSlugs.
type SlugRename struct {
	PageID int64
	From   string
	To     string
}

// FixSlugs normalizes the website's slugs and resolves duplicates by
// suffixing later pages, oldest page first. With dryRun nothing is written.
func (r *PageRepository) FixSlugs(ctx context.Context, websiteID int64, dryRun bool) ([]SlugRename, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin slug transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var pages []models.Page
	query := `SELECT id, slug FROM pages WHERE website_id = $1 ORDER BY id ASC FOR UPDATE`
	if err = tx.SelectContext(ctx, &pages, query, websiteID); err != nil {
		return nil, fmt.Errorf("failed to load slugs: %w", err)
	}

	// Renames are planned against the final set so a new slug never
	// collides with a page that keeps its own.
	claimed := make(map[string]bool, len(pages))
	alloc := slug.Allocator{Exists: func(_ context.Context, s string) (bool, error) {
		return claimed[s], nil
	}}

	var renames []SlugRename
	for _, p := range pages {
		want, allocErr := alloc.Allocate(ctx, slug.Clean(p.Slug))
		if allocErr != nil {
			return nil, allocErr
		}
		claimed[want] = true
		if want != p.Slug {
			renames = append(renames, SlugRename{PageID: p.ID, From: p.Slug, To: want})
		}
	}
	if dryRun || len(renames) == 0 {
		return renames, nil
	}

	// Move renamed pages out of the way first so the unique index holds
	// between statements.
	for _, rn := range renames {
		if _, err = tx.ExecContext(ctx, `UPDATE pages SET slug = $1 WHERE id = $2`,
			fmt.Sprintf("__fix-%d", rn.PageID), rn.PageID); err != nil {
			return nil, fmt.Errorf("failed to park slug: %w", err)
		}
	}
	for _, rn := range renames {
		if _, err = tx.ExecContext(ctx, `UPDATE pages SET slug = $1, updated_at = NOW() WHERE id = $2`,
			rn.To, rn.PageID); err != nil {
			return nil, fmt.Errorf("failed to rename slug: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit slug transaction: %w", err)
	}
	return renames, nil
}

// prepareSave allocates the slug and recomputes the breadcrumb. page.ID is
// zero for new pages.
func prepareSave(ctx context.Context, tx *sqlx.Tx, page *models.Page, requested string) error {
	alloc := slug.Allocator{Exists: func(ctx context.Context, s string) (bool, error) {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM pages WHERE website_id = $1 AND slug = $2 AND id <> $3)`,
			page.WebsiteID, s, page.ID)
		return exists, err
	}}

	s, err := alloc.Allocate(ctx, slug.FromTitle(requested, page.Title))
	if err != nil {
		return fmt.Errorf("failed to allocate slug: %w", err)
	}
	page.Slug = s

	var others []string
	if err = tx.SelectContext(ctx, &others,
		`SELECT slug FROM pages WHERE website_id = $1 AND id <> $2`, page.WebsiteID, page.ID); err != nil {
		return fmt.Errorf("failed to load sibling slugs: %w", err)
	}
	taken := make(map[string]bool, len(others)+1)
	for _, o := range others {
		taken[o] = true
	}
	taken[page.Slug] = true
	page.Breadcrumb = models.BuildBreadcrumb(page.Slug, taken)
	return nil
}

func insertPage(ctx context.Context, tx *sqlx.Tx, page *models.Page, now time.Time) error {
	query := `
		INSERT INTO pages (
			website_id, title, content, slug, is_homepage, nofollow, meta_description,
			date_published, date_modified, breadcrumb, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + pageColumns

	err := tx.QueryRowxContext(ctx, query,
		page.WebsiteID, page.Title, page.Content, page.Slug, page.IsHomepage, page.Nofollow,
		page.MetaDescription, page.DatePublished, page.DateModified, page.Breadcrumb, now, now,
	).StructScan(page)
	if err != nil {
		return mapWriteError("create page", err)
	}
	return nil
}

func clearHomepage(ctx context.Context, tx *sqlx.Tx, websiteID, keepID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE pages SET is_homepage = false WHERE website_id = $1 AND id <> $2 AND is_homepage`,
		websiteID, keepID)
	if err != nil {
		return fmt.Errorf("failed to clear homepage flag: %w", err)
	}
	return nil
}

func timeOr(t *time.Time, fallback time.Time) *time.Time {
	if t != nil {
		return t
	}
	return &fallback
}
