// Package snapshot turns a website and its pages into the typed site model
// that the export bundle is generated from.
package snapshot

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/site-builder/internal/markup"
	"github.com/jonesrussell/site-builder/internal/menu"
	"github.com/jonesrussell/site-builder/internal/models"
)

// Colors used when a website leaves a color setting blank.
const (
	ExportHeaderBoxColor   = "#14808a55"
	ExportPhoneBannerColor = "#14808a"
	ExportContactBoxColor  = "#24d16cff"

	rgbaSourceColor = "#14808a"
	headerBoxAlpha  = 0.5
)

var defaultFormOptions2 = []string{"Less than 300", "Between 300-500", "More than 500"}

var socialLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// Link is a titled URL.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Author is the organization credit carried into structured data.
type Author struct {
	Name        string `json:"name"`
	Logo        string `json:"logo"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

// Settings is the website payload of the bundle.
type Settings struct {
	Name                   string   `json:"name"`
	Domain                 string   `json:"domain"`
	PhoneNumberDisplay     string   `json:"phone_number_display"`
	PhoneNumberLink        string   `json:"phone_number_link"`
	RobotsTxt              string   `json:"robots_txt"`
	GitHubRepo             string   `json:"github_repo"`
	IsPublicRepo           bool     `json:"is_public_repo"`
	FormCTA1               string   `json:"form_cta1"`
	FormCTA2               string   `json:"form_cta2"`
	FormQuestion1          string   `json:"form_question1"`
	FormQuestion2          string   `json:"form_question2"`
	FormOptions1           []string `json:"form_options1"`
	FormOptions2           []string `json:"form_options2"`
	FormQuoteButton        string   `json:"form_quote_button"`
	FormNameLabel          string   `json:"form_name_label"`
	FormPhoneLabel         string   `json:"form_phone_label"`
	FormEmailLabel         string   `json:"form_email_label"`
	FooterPhoneCTA         string   `json:"footer_phone_cta"`
	FooterLegalDisclaimer  string   `json:"footer_legal_disclaimer"`
	GoogleSearchConsoleTag string   `json:"google_search_console_tag"`
	GoogleTag              string   `json:"google_tag"`
	MetaFacebookPixel      string   `json:"meta_facebook_pixel"`
	GoogleAnalytics        string   `json:"google_analytics"`
	SocialLinks            []Link   `json:"social_links"`
	Favicon                string   `json:"favicon"`
	Logo                   string   `json:"logo"`
	Author                 Author   `json:"author"`
	GlobalSEOSchema        string   `json:"global_seo_schema"`
	FormAPIKey             string   `json:"form_api_key"`
	NofollowURLs           []string `json:"nofollow_urls"`
	HeaderBoxColor         string   `json:"header_box_color"`
	PhoneBannerBgColor     string   `json:"phone_banner_bg_color"`
	ContactBoxColor        string   `json:"contact_box_color"`
	HeaderBoxRGBA          string   `json:"header_box_rgba"`
}

// Page is one exported page.
type Page struct {
	Slug            string            `json:"slug"`
	Title           string            `json:"title"`
	Content         string            `json:"content"`
	MetaDescription string            `json:"meta_description"`
	IsHomepage      bool              `json:"is_homepage"`
	Nofollow        bool              `json:"nofollow"`
	DatePublished   string            `json:"date_published"`
	DateModified    string            `json:"date_modified"`
	Breadcrumb      models.Breadcrumb `json:"breadcrumb"`
	Paragraphs      []string          `json:"paragraphs"`
	Schema          string            `json:"schema"`
}

// Site is the complete export model.
type Site struct {
	Website      Settings
	Pages        []Page
	HomepageSlug string
	HeaderMenu   menu.Menu
	FooterMenu   menu.Menu
	Routes       []Route
}

// Page returns the page with the given slug.
func (s *Site) Page(slug string) (Page, bool) {
	for _, p := range s.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// Assets holds bundle-relative URLs of branding files that made it into
// the bundle. Empty means the file could not be materialized.
type Assets struct {
	Favicon    string
	Logo       string
	AuthorLogo string
}

// Input is everything the builder reads. Page content is expected to be
// rewritten for export already.
type Input struct {
	Website    *models.Website
	Author     *models.Author
	Pages      []models.Page
	HeaderMenu string
	FooterMenu string
	Assets     Assets
}

// Builder applies export-time defaults.
type Builder struct {
	FormAPIKey string
}

// Build assembles the site model. Pages are ordered by slug. The homepage
// is the first page flagged is_homepage, else the first input page.
func (b Builder) Build(in Input) *Site {
	site := &Site{
		Website:    b.settings(in),
		HeaderMenu: menu.Parse(in.HeaderMenu),
		FooterMenu: menu.Parse(in.FooterMenu),
	}

	for _, p := range in.Pages {
		if p.IsHomepage {
			site.HomepageSlug = p.Slug
			break
		}
	}
	if site.HomepageSlug == "" && len(in.Pages) > 0 {
		site.HomepageSlug = in.Pages[0].Slug
	}

	site.Pages = make([]Page, 0, len(in.Pages))
	for _, p := range in.Pages {
		page := Page{
			Slug:            p.Slug,
			Title:           p.Title,
			Content:         p.Content,
			MetaDescription: p.MetaDescription,
			IsHomepage:      p.IsHomepage,
			Nofollow:        p.Nofollow,
			DatePublished:   isoDate(p.DatePublished),
			DateModified:    isoDate(p.DateModified),
			Breadcrumb:      p.Breadcrumb,
			Paragraphs:      markup.Paragraphs(p.Content),
		}
		if page.Breadcrumb == nil {
			page.Breadcrumb = models.Breadcrumb{}
		}
		page.Schema = SEO(site.Website, page)
		site.Pages = append(site.Pages, page)
	}
	slices.SortFunc(site.Pages, func(a, b Page) int { return strings.Compare(a.Slug, b.Slug) })

	site.Routes = Routes(site.Pages)
	return site
}

func (b Builder) settings(in Input) Settings {
	w := in.Website
	s := Settings{
		Name:                   w.Name,
		Domain:                 w.Domain,
		PhoneNumberDisplay:     w.PhoneNumberDisplay,
		PhoneNumberLink:        w.PhoneNumberLink,
		RobotsTxt:              w.RobotsTxt,
		GitHubRepo:             w.GitHubRepo,
		IsPublicRepo:           w.IsPublicRepo,
		FormCTA1:               w.FormCTA1,
		FormCTA2:               w.FormCTA2,
		FormQuestion1:          w.FormQuestion1,
		FormQuestion2:          w.FormQuestion2,
		FormOptions1:           FormOptions(w.FormOptions1, nonHomepageTitles(in.Pages)),
		FormOptions2:           FormOptions(w.FormOptions2, defaultFormOptions2),
		FormQuoteButton:        w.FormQuoteButton,
		FormNameLabel:          w.FormNameLabel,
		FormPhoneLabel:         w.FormPhoneLabel,
		FormEmailLabel:         w.FormEmailLabel,
		FooterPhoneCTA:         w.FooterPhoneCTA,
		FooterLegalDisclaimer:  w.FooterLegalDisclaimer,
		GoogleSearchConsoleTag: w.GoogleSearchConsoleTag,
		GoogleTag:              w.GoogleTag,
		MetaFacebookPixel:      w.MetaFacebookPixel,
		GoogleAnalytics:        w.GoogleAnalytics,
		SocialLinks:            SocialLinks(w.SocialMediaBox),
		Favicon:                in.Assets.Favicon,
		Logo:                   in.Assets.Logo,
		GlobalSEOSchema:        w.GlobalSEOSchema,
		FormAPIKey:             b.FormAPIKey,
		NofollowURLs:           NofollowURLs(in.Pages),
		HeaderBoxColor:         orDefault(w.HeaderBoxColor, ExportHeaderBoxColor),
		PhoneBannerBgColor:     orDefault(w.PhoneBannerBgColor, ExportPhoneBannerColor),
		ContactBoxColor:        orDefault(w.ContactBoxColor, ExportContactBoxColor),
		HeaderBoxRGBA:          HexToRGBA(orDefault(w.HeaderBoxColor, rgbaSourceColor), headerBoxAlpha),
	}
	if in.Author != nil {
		s.Author = Author{
			Name:        in.Author.Name,
			Logo:        in.Assets.AuthorLogo,
			Description: in.Author.Description,
			Image:       in.Author.Image,
			URL:         in.Author.URL,
		}
	}
	return s
}

// FormOptions splits newline separated options, falling back when the
// setting is blank.
func FormOptions(raw string, fallback []string) []string {
	if strings.TrimSpace(raw) == "" {
		return slices.Clone(fallback)
	}
	var out []string
	for _, opt := range strings.Split(raw, "\n") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

// SocialLinks extracts every [title](url) pair from the social box.
func SocialLinks(box string) []Link {
	links := []Link{}
	for _, m := range socialLink.FindAllStringSubmatch(box, -1) {
		links = append(links, Link{Title: m[1], URL: m[2]})
	}
	return links
}

// NofollowURLs lists /{slug} for every page flagged nofollow.
func NofollowURLs(pages []models.Page) []string {
	urls := []string{}
	for _, p := range pages {
		if p.Nofollow {
			urls = append(urls, "/"+p.Slug)
		}
	}
	return urls
}

// HexToRGBA converts #rgb or #rrggbb to an rgba() string. Anything else
// yields the brand teal.
func HexToRGBA(hex string, alpha float64) string {
	a := strconv.FormatFloat(alpha, 'f', -1, 64)
	h := strings.TrimLeft(hex, "#")

	var rgb [3]uint64
	switch len(h) {
	case 6:
		for i := range rgb {
			v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
			if err != nil {
				return fallbackRGBA(a)
			}
			rgb[i] = v
		}
	case 3:
		for i := range rgb {
			v, err := strconv.ParseUint(strings.Repeat(h[i:i+1], 2), 16, 8)
			if err != nil {
				return fallbackRGBA(a)
			}
			rgb[i] = v
		}
	default:
		return fallbackRGBA(a)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgb[0], rgb[1], rgb[2], a)
}

func fallbackRGBA(alpha string) string {
	return "rgba(20, 128, 138, " + alpha + ")"
}

func nonHomepageTitles(pages []models.Page) []string {
	titles := []string{}
	for _, p := range pages {
		if !p.IsHomepage {
			titles = append(titles, p.Title)
		}
	}
	return titles
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
