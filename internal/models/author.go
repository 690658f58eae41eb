package models

import (
	"net/url"
	"path"
	"strings"
)

// Author is the organization credited in structured data.
type Author struct {
	ID          int64  `db:"id"          json:"id"`
	Name        string `db:"name"        json:"name"`
	Logo        string `db:"logo"        json:"logo"`
	Description string `db:"description" json:"description"`
	Image       string `db:"image"       json:"image"`
	URL         string `db:"url"         json:"url"`
}

type AuthorRequest struct {
	Name        string `binding:"required,max=255" json:"name"`
	Logo        string `json:"logo"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `binding:"omitempty,url"    json:"url"`
}

// Validate checks that the logo is an http(s) URL or a path relative to the
// media root.
func (r *AuthorRequest) Validate() error {
	errs := FieldErrors{}
	if msg := validateMediaRef(r.Logo); msg != "" {
		errs["logo"] = msg
	}
	return errs.Err()
}

func validateMediaRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if u, err := url.Parse(ref); err != nil || u.Host == "" {
			return "must be a valid URL"
		}
		return ""
	}
	rel := strings.TrimPrefix(ref, "/media/")
	if strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return "must be an http(s) URL or a media path"
	}
	if clean := path.Clean(rel); clean == ".." || strings.HasPrefix(clean, "../") {
		return "must stay inside the media directory"
	}
	return ""
}
