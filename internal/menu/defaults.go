package menu

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/site-builder/internal/models"
)

const fallbackOwner = "our company"

// DefaultHeader is the header skeleton for a site with the given pages.
func DefaultHeader(pages []models.Page) string {
	homeSlug := ""
	for i := range pages {
		if pages[i].IsHomepage {
			homeSlug = pages[i].Slug
			break
		}
	}

	var b strings.Builder
	b.WriteString("[Homepage](/)\n[Services]()")
	for i := range pages {
		if pages[i].Slug == homeSlug {
			continue
		}
		fmt.Fprintf(&b, "\n\t[%s](%s)", pages[i].Title, pages[i].Slug)
	}
	b.WriteString("\n[Contact Us](/contact/)")
	return b.String()
}

// DefaultFooter is the legal footer skeleton naming the site owner.
func DefaultFooter(ownerName string) string {
	if ownerName == "" {
		ownerName = fallbackOwner
	}
	return "This is a 3rd party website, we do not perform the work itself but are merely a marketing website for " +
		ownerName + ".\n[Disclaimer](/disclaimer)\n[Privacy Policy](/privacy-policy)\n[Terms of Service](/terms-of-service)"
}

// Default returns the default content for a menu type.
func Default(t models.MenuType, pages []models.Page, ownerName string) string {
	if t == models.MenuFooter {
		return DefaultFooter(ownerName)
	}
	return DefaultHeader(pages)
}

// Content returns saved, or the default content when saved is blank.
func Content(saved string, t models.MenuType, pages []models.Page, ownerName string) string {
	if strings.TrimSpace(saved) == "" {
		return Default(t, pages, ownerName)
	}
	return saved
}

// HelperLinks lists every page as a copyable link line.
func HelperLinks(pages []models.Page) string {
	lines := make([]string, 0, len(pages))
	for i := range pages {
		lines = append(lines, "["+pages[i].Title+"]("+pages[i].Slug+")")
	}
	return strings.Join(lines, "\n")
}
