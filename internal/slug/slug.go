// Package slug normalises page slugs and allocates collision-free ones.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Root is the slug an empty input collapses to.
const Root = "/"

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\-/]`)
	dashes     = regexp.MustCompile(`-+`)
	slashes    = regexp.MustCompile(`/+`)
	nonWord    = regexp.MustCompile(`[^a-z0-9\s-]`)
	separators = regexp.MustCompile(`[\s-]+`)
)

// Clean normalises a user-supplied slug path. Segments keep their "/"
// separators; leading, trailing and empty segments are dropped.
func Clean(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "-")
	s = disallowed.ReplaceAllString(s, "")
	s = dashes.ReplaceAllString(s, "-")
	s = slashes.ReplaceAllString(s, "/")

	parts := strings.Split(s, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.Trim(p, "-"); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return Root
	}
	return strings.Join(kept, "/")
}

// Slugify turns a display name into a single hyphenated token, used for
// website domains.
func Slugify(s string) string {
	s = nonWord.ReplaceAllString(strings.ToLower(s), "")
	s = separators.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-")
}

// FromTitle cleans slug, falling back to the title when slug is blank.
func FromTitle(slug, title string) string {
	if strings.TrimSpace(slug) == "" {
		slug = title
	}
	return Clean(slug)
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Allocator hands out slugs that are free according to Exists.
type Allocator struct {
	Exists ExistsFunc
	// MaxAttempts bounds the suffix search; zero means 1000.
	MaxAttempts int
}

const defaultMaxAttempts = 1000

// Allocate returns base when free, otherwise the first free base-N for N from 1.
func (a Allocator) Allocate(ctx context.Context, base string) (string, error) {
	limit := a.MaxAttempts
	if limit <= 0 {
		limit = defaultMaxAttempts
	}

	candidate := base
	stem := strings.TrimSuffix(base, "/")
	for n := 1; n <= limit; n++ {
		taken, err := a.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", stem, n)
	}
	return "", fmt.Errorf("allocate slug %q: no free suffix after %d attempts", base, limit)
}
