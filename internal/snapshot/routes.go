package snapshot

// View names understood by the generated server.
const (
	ViewHome     = "home"
	ViewRedirect = "redirect"
	ViewSitemap  = "sitemap"
	ViewRobots   = "robots"
	ViewFixed    = "fixed"
	ViewPage     = "page"
)

// Route maps a request path to a generated view.
type Route struct {
	Path   string
	View   string
	Target string
}

// Fixed pages and their bodies. The contact body is prefixed to the phone number.
const (
	DisclaimerText    = "This is the disclaimer page."
	PrivacyPolicyText = "This is the privacy policy page."
	TermsText         = "This is the terms of service page."
	ContactPrefix     = "Contact us at "
)

// FixedPage is a page every bundle serves regardless of content.
type FixedPage struct {
	Slug    string
	Title   string
	Content string
}

// FixedPages returns the fixed pages in route order.
func FixedPages(w Settings) []FixedPage {
	return []FixedPage{
		{Slug: "disclaimer", Title: "Disclaimer", Content: DisclaimerText},
		{Slug: "privacy-policy", Title: "Privacy Policy", Content: PrivacyPolicyText},
		{Slug: "terms-of-service", Title: "Terms of Service", Content: TermsText},
		{Slug: "contact", Title: "Contact", Content: ContactPrefix + w.PhoneNumberDisplay},
	}
}

var fixedRoutes = []Route{
	{Path: "/", View: ViewHome},
	{Path: "/home/", View: ViewRedirect, Target: "/"},
	{Path: "/sitemap.xml", View: ViewSitemap},
	{Path: "/robots.txt", View: ViewRobots},
	{Path: "/disclaimer/", View: ViewFixed, Target: "disclaimer"},
	{Path: "/privacy-policy/", View: ViewFixed, Target: "privacy-policy"},
	{Path: "/terms-of-service/", View: ViewFixed, Target: "terms-of-service"},
	{Path: "/contact/", View: ViewFixed, Target: "contact"},
}

// Routes returns the fixed block followed by one route per non-homepage
// page. Pages must already be ordered. A page whose path is already routed
// is left out, so fixed views and earlier pages win.
func Routes(pages []Page) []Route {
	routes := make([]Route, 0, len(fixedRoutes)+len(pages))
	routes = append(routes, fixedRoutes...)
	taken := make(map[string]bool, cap(routes))
	for _, r := range fixedRoutes {
		taken[r.Path] = true
	}
	for _, p := range pages {
		path := "/" + p.Slug + "/"
		if p.IsHomepage || taken[path] {
			continue
		}
		taken[path] = true
		routes = append(routes, Route{Path: path, View: ViewPage, Target: p.Slug})
	}
	return routes
}
