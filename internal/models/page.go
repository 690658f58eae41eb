package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxMetaDescription is the longest accepted meta description, in characters.
const MaxMetaDescription = 160

// Page is one content page of a website.
type Page struct {
	ID              int64      `db:"id"               json:"id"`
	WebsiteID       int64      `db:"website_id"       json:"website_id"`
	Title           string     `db:"title"            json:"title"`
	Content         string     `db:"content"          json:"content"`
	Slug            string     `db:"slug"             json:"slug"`
	IsHomepage      bool       `db:"is_homepage"      json:"is_homepage"`
	Nofollow        bool       `db:"nofollow"         json:"nofollow"`
	MetaDescription string     `db:"meta_description" json:"meta_description"`
	DatePublished   *time.Time `db:"date_published"   json:"date_published"`
	DateModified    *time.Time `db:"date_modified"    json:"date_modified"`
	Breadcrumb      Breadcrumb `db:"breadcrumb"       json:"breadcrumb"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// Crumb is one breadcrumb node.
type Crumb struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Exists bool   `json:"exists"`
}

// Breadcrumb is stored as JSONB.
type Breadcrumb []Crumb

func (b Breadcrumb) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

func (b *Breadcrumb) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*b = Breadcrumb{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan breadcrumb: unsupported type %T", src)
	}
	return json.Unmarshal(raw, b)
}

// PageRequest creates or updates a page. An empty slug is derived from the title.
type PageRequest struct {
	Title           string     `binding:"required,min=1,max=255" json:"title"`
	Content         string     `json:"content"`
	Slug            string     `binding:"max=255"                json:"slug"`
	IsHomepage      bool       `json:"is_homepage"`
	Nofollow        bool       `json:"nofollow"`
	MetaDescription string     `json:"meta_description"`
	DatePublished   *time.Time `json:"date_published"`
	DateModified    *time.Time `json:"date_modified"`
}

var errEmptyTitle = errors.New("title is required")

func (r *PageRequest) Validate() error {
	errs := FieldErrors{}
	if r.Title == "" {
		errs["title"] = errEmptyTitle.Error()
	}
	if utf8.RuneCountInString(r.MetaDescription) > MaxMetaDescription {
		errs["meta_description"] = fmt.Sprintf("must be at most %d characters", MaxMetaDescription)
	}
	return errs.Err()
}

// BuildBreadcrumb derives the trail for slug. Each "/"-separated prefix
// becomes a crumb, marked as existing when taken holds it.
func BuildBreadcrumb(slug string, taken map[string]bool) Breadcrumb {
	trail := Breadcrumb{{Title: "Domain", URL: "/", Exists: true}}
	prefix := ""
	for part := range strings.SplitSeq(strings.Trim(slug, "/"), "/") {
		if part == "" {
			continue
		}
		if prefix == "" {
			prefix = part
		} else {
			prefix += "/" + part
		}
		trail = append(trail, Crumb{Title: capitalize(part), URL: "/" + prefix + "/", Exists: taken[prefix]})
	}
	return trail
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}
