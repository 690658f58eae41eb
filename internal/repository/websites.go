package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Initial homepage created with every website.
const (
	HomeTitle   = "Home"
	HomeSlug    = "home"
	HomeContent = "Welcome to our website!"
)

const websiteColumns = `
	id, owner_id, owner_name, name, domain, phone_number_display, phone_number_link,
	robots_txt, github_repo, is_public_repo, logo, favicon, heading_background_image,
	footer_phone_cta, footer_legal_disclaimer, social_media_box,
	google_search_console_tag, google_tag, meta_facebook_pixel, google_analytics,
	form_cta1, form_cta2, form_question1, form_question2, form_options1, form_options2,
	form_quote_button, form_name_label, form_phone_label, form_email_label,
	global_seo_schema, header_box_color, phone_banner_bg_color, contact_box_color,
	author_id, created_at, updated_at`

// WebsiteRepository stores websites.
type WebsiteRepository struct {
	db *sqlx.DB
}

// NewWebsiteRepository creates a new website repository
func NewWebsiteRepository(db *sqlx.DB) *WebsiteRepository {
	return &WebsiteRepository{db: db}
}

// Create inserts the website and its initial homepage in one transaction.
func (r *WebsiteRepository) Create(ctx context.Context, w *models.Website) (*models.Website, error) {
	w.EnsureDomain()
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin website transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO websites (
			owner_id, owner_name, name, domain, phone_number_display, phone_number_link,
			robots_txt, footer_phone_cta, footer_legal_disclaimer, social_media_box,
			form_cta1, form_cta2, form_question1, form_question2, form_options1, form_options2,
			form_quote_button, form_name_label, form_phone_label, form_email_label,
			global_seo_schema, header_box_color, phone_banner_bg_color, contact_box_color,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
		RETURNING ` + websiteColumns

	err = tx.QueryRowxContext(ctx, query,
		w.OwnerID, w.OwnerName, w.Name, w.Domain, w.PhoneNumberDisplay, w.PhoneNumberLink,
		w.RobotsTxt, w.FooterPhoneCTA, w.FooterLegalDisclaimer, w.SocialMediaBox,
		w.FormCTA1, w.FormCTA2, w.FormQuestion1, w.FormQuestion2, w.FormOptions1, w.FormOptions2,
		w.FormQuoteButton, w.FormNameLabel, w.FormPhoneLabel, w.FormEmailLabel,
		w.GlobalSEOSchema, w.HeaderBoxColor, w.PhoneBannerBgColor, w.ContactBoxColor,
		w.CreatedAt, w.UpdatedAt,
	).StructScan(w)
	if err != nil {
		return nil, mapWriteError("create website", err)
	}

	home := models.Page{
		WebsiteID:     w.ID,
		Title:         HomeTitle,
		Slug:          HomeSlug,
		Content:       HomeContent,
		IsHomepage:    true,
		DatePublished: &now,
		DateModified:  &now,
		Breadcrumb:    models.BuildBreadcrumb(HomeSlug, map[string]bool{HomeSlug: true}),
	}
	if err = insertPage(ctx, tx, &home, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit website transaction: %w", err)
	}
	return w, nil
}

// List returns the owner's websites, newest first.
func (r *WebsiteRepository) List(ctx context.Context, ownerID string) ([]models.Website, error) {
	websites := []models.Website{}
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &websites, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list websites: %w", err)
	}
	return websites, nil
}

// Get returns the website when it belongs to ownerID. A foreign website is
// reported as models.ErrNotFound.
func (r *WebsiteRepository) Get(ctx context.Context, id int64, ownerID string) (*models.Website, error) {
	w := &models.Website{}
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1 AND owner_id = $2`

	if err := r.db.GetContext(ctx, w, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	return w, nil
}

// GetByID returns a website regardless of owner. Used by operator tooling.
func (r *WebsiteRepository) GetByID(ctx context.Context, id int64) (*models.Website, error) {
	w := &models.Website{}
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1`

	if err := r.db.GetContext(ctx, w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get website: %w", err)
	}
	return w, nil
}

// Update writes every editable column of w.
func (r *WebsiteRepository) Update(ctx context.Context, w *models.Website) (*models.Website, error) {
	w.EnsureDomain()
	w.UpdatedAt = time.Now()

	query := `
		UPDATE websites SET
			name = $3, domain = $4, phone_number_display = $5, phone_number_link = $6,
			robots_txt = $7, footer_phone_cta = $8, footer_legal_disclaimer = $9,
			social_media_box = $10, google_search_console_tag = $11, google_tag = $12,
			meta_facebook_pixel = $13, google_analytics = $14, form_cta1 = $15,
			form_cta2 = $16, form_question1 = $17, form_question2 = $18,
			form_options1 = $19, form_options2 = $20, form_quote_button = $21,
			form_name_label = $22, form_phone_label = $23, form_email_label = $24,
			global_seo_schema = $25, header_box_color = $26, phone_banner_bg_color = $27,
			contact_box_color = $28, updated_at = $29
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + websiteColumns

	err := r.db.QueryRowxContext(ctx, query,
		w.ID, w.OwnerID, w.Name, w.Domain, w.PhoneNumberDisplay, w.PhoneNumberLink,
		w.RobotsTxt, w.FooterPhoneCTA, w.FooterLegalDisclaimer,
		w.SocialMediaBox, w.GoogleSearchConsoleTag, w.GoogleTag,
		w.MetaFacebookPixel, w.GoogleAnalytics, w.FormCTA1,
		w.FormCTA2, w.FormQuestion1, w.FormQuestion2,
		w.FormOptions1, w.FormOptions2, w.FormQuoteButton,
		w.FormNameLabel, w.FormPhoneLabel, w.FormEmailLabel,
		w.GlobalSEOSchema, w.HeaderBoxColor, w.PhoneBannerBgColor,
		w.ContactBoxColor, w.UpdatedAt,
	).StructScan(w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, mapWriteError("update website", err)
	}
	return w, nil
}

// SetAsset stores a branding file reference.
func (r *WebsiteRepository) SetAsset(ctx context.Context, id int64, ownerID string, kind models.AssetKind, ref string) error {
	column, ok := kind.Column()
	if !ok {
		return fmt.Errorf("%w: unknown asset kind %q", models.ErrValidation, kind)
	}
	query := `UPDATE websites SET ` + column + ` = $1, updated_at = NOW() WHERE id = $2 AND owner_id = $3`
	return r.execOne(ctx, "set website asset", query, ref, id, ownerID)
}

// SetRepository records the repository a website was published to.
func (r *WebsiteRepository) SetRepository(ctx context.Context, id int64, repoURL string, public bool) error {
	query := `UPDATE websites SET github_repo = $1, is_public_repo = $2, updated_at = NOW() WHERE id = $3`
	return r.execOne(ctx, "set website repository", query, repoURL, public, id)
}

// Delete removes the website; pages and menus cascade.
func (r *WebsiteRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	query := `DELETE FROM websites WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, "delete website", query, id, ownerID)
}

// ListIDs returns every website id in ascending order.
func (r *WebsiteRepository) ListIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM websites ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list website ids: %w", err)
	}
	return ids, nil
}

func (r *WebsiteRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
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

func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrAlreadyExists
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
