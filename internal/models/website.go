package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonesrussell/site-builder/internal/slug"
)

// Defaults applied to new websites.
const (
	DefaultRobotsTxt        = "User-agent: *\nAllow: /"
	DefaultFormCTA1         = "FREE INSTANT QUOTE!"
	DefaultFormCTA2         = "*plus FREE bonus coupon*"
	DefaultFormQuestion1    = "What service do you need?"
	DefaultFormQuestion2    = "How many square feet?"
	DefaultFormQuoteButton  = "Get Quote!"
	DefaultFormNameLabel    = "Name"
	DefaultFormPhoneLabel   = "Phone Number"
	DefaultFormEmailLabel   = "Email"
	DefaultHeaderBoxColor   = "#14808a"
	DefaultPhoneBannerColor = "#174d78"
	DefaultContactBoxColor  = "#1e3a8a"
	DefaultGlobalSEOSchema  = `{
  "@context": "https://schema.org",
  "@type": "LocalBusiness",
  "name": "",
  "telephone": "",
  "url": ""
}`
)

// Website is one tenant site.
type Website struct {
	ID                      int64     `db:"id"                        json:"id"`
	OwnerID                 string    `db:"owner_id"                  json:"owner_id"`
	OwnerName               string    `db:"owner_name"                json:"owner_name"`
	Name                    string    `db:"name"                      json:"name"`
	Domain                  string    `db:"domain"                    json:"domain"`
	PhoneNumberDisplay      string    `db:"phone_number_display"      json:"phone_number_display"`
	PhoneNumberLink         string    `db:"phone_number_link"         json:"phone_number_link"`
	RobotsTxt               string    `db:"robots_txt"                json:"robots_txt"`
	GitHubRepo              string    `db:"github_repo"               json:"github_repo"`
	IsPublicRepo            bool      `db:"is_public_repo"            json:"is_public_repo"`
	Logo                    string    `db:"logo"                      json:"logo"`
	Favicon                 string    `db:"favicon"                   json:"favicon"`
	HeadingBackgroundImage  string    `db:"heading_background_image"  json:"heading_background_image"`
	FooterPhoneCTA          string    `db:"footer_phone_cta"          json:"footer_phone_cta"`
	FooterLegalDisclaimer   string    `db:"footer_legal_disclaimer"   json:"footer_legal_disclaimer"`
	SocialMediaBox          string    `db:"social_media_box"          json:"social_media_box"`
	GoogleSearchConsoleTag  string    `db:"google_search_console_tag" json:"google_search_console_tag"`
	GoogleTag               string    `db:"google_tag"                json:"google_tag"`
	MetaFacebookPixel       string    `db:"meta_facebook_pixel"       json:"meta_facebook_pixel"`
	GoogleAnalytics         string    `db:"google_analytics"          json:"google_analytics"`
	FormCTA1                string    `db:"form_cta1"                 json:"form_cta1"`
	FormCTA2                string    `db:"form_cta2"                 json:"form_cta2"`
	FormQuestion1           string    `db:"form_question1"            json:"form_question1"`
	FormQuestion2           string    `db:"form_question2"            json:"form_question2"`
	FormOptions1            string    `db:"form_options1"             json:"form_options1"`
	FormOptions2            string    `db:"form_options2"             json:"form_options2"`
	FormQuoteButton         string    `db:"form_quote_button"         json:"form_quote_button"`
	FormNameLabel           string    `db:"form_name_label"           json:"form_name_label"`
	FormPhoneLabel          string    `db:"form_phone_label"          json:"form_phone_label"`
	FormEmailLabel          string    `db:"form_email_label"          json:"form_email_label"`
	GlobalSEOSchema         string    `db:"global_seo_schema"         json:"global_seo_schema"`
	HeaderBoxColor          string    `db:"header_box_color"          json:"header_box_color"`
	PhoneBannerBgColor      string    `db:"phone_banner_bg_color"     json:"phone_banner_bg_color"`
	ContactBoxColor         string    `db:"contact_box_color"         json:"contact_box_color"`
	AuthorID                *int64    `db:"author_id"                 json:"author_id"`
	CreatedAt               time.Time `db:"created_at"                json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"                json:"updated_at"`
}

// NewWebsite returns a website populated with the product defaults.
func NewWebsite(ownerID, ownerName, name, domain string) *Website {
	return &Website{
		OwnerID:            ownerID,
		OwnerName:          ownerName,
		Name:               name,
		Domain:             domain,
		RobotsTxt:          DefaultRobotsTxt,
		FormCTA1:           DefaultFormCTA1,
		FormCTA2:           DefaultFormCTA2,
		FormQuestion1:      DefaultFormQuestion1,
		FormQuestion2:      DefaultFormQuestion2,
		FormQuoteButton:    DefaultFormQuoteButton,
		FormNameLabel:      DefaultFormNameLabel,
		FormPhoneLabel:     DefaultFormPhoneLabel,
		FormEmailLabel:     DefaultFormEmailLabel,
		GlobalSEOSchema:    DefaultGlobalSEOSchema,
		HeaderBoxColor:     DefaultHeaderBoxColor,
		PhoneBannerBgColor: DefaultPhoneBannerColor,
		ContactBoxColor:    DefaultContactBoxColor,
	}
}

// fallbackDomain is used when the name has no slug-safe characters.
const fallbackDomain = "site"

// EnsureDomain derives the domain from the name when it is blank.
func (w *Website) EnsureDomain() {
	w.Domain = strings.TrimSpace(w.Domain)
	if w.Domain != "" {
		return
	}
	if w.Domain = slug.Slugify(w.Name); w.Domain == "" {
		w.Domain = fallbackDomain
	}
}

// AssetKind names an uploadable branding image.
type AssetKind string

const (
	AssetLogo    AssetKind = "logo"
	AssetFavicon AssetKind = "favicon"
	AssetHeading AssetKind = "heading"
)

// Column returns the websites column holding the asset reference.
func (k AssetKind) Column() (string, bool) {
	switch k {
	case AssetLogo:
		return "logo", true
	case AssetFavicon:
		return "favicon", true
	case AssetHeading:
		return "heading_background_image", true
	}
	return "", false
}

// WebsiteCreateRequest creates a website. Domain defaults to slugify(name).
type WebsiteCreateRequest struct {
	Name   string `binding:"required,min=1,max=255" json:"name"`
	Domain string `binding:"max=255"                json:"domain"`
}

// WebsiteSettingsRequest is a partial update of general site settings.
type WebsiteSettingsRequest struct {
	Name                  *string `json:"name"`
	Domain                *string `json:"domain"`
	PhoneNumberDisplay    *string `json:"phone_number_display"`
	PhoneNumberLink       *string `json:"phone_number_link"`
	RobotsTxt             *string `json:"robots_txt"`
	FooterPhoneCTA        *string `json:"footer_phone_cta"`
	FooterLegalDisclaimer *string `json:"footer_legal_disclaimer"`
	SocialMediaBox        *string `json:"social_media_box"`
	GlobalSEOSchema       *string `json:"global_seo_schema"`
	HeaderBoxColor        *string `json:"header_box_color"`
	PhoneBannerBgColor    *string `json:"phone_banner_bg_color"`
	ContactBoxColor       *string `json:"contact_box_color"`
}

var (
	socialLinePattern = regexp.MustCompile(`^\[(.+?)\]\s*\((.+?)\s*\)$`)
	hexColorPattern   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// Validate checks social lines and color fields.
func (r *WebsiteSettingsRequest) Validate() error {
	errs := FieldErrors{}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		errs["name"] = "must not be empty"
	}
	if r.SocialMediaBox != nil {
		if msg := ValidateSocialLinks(*r.SocialMediaBox); msg != "" {
			errs["social_media_box"] = msg
		}
	}
	for field, v := range map[string]*string{
		"header_box_color":      r.HeaderBoxColor,
		"phone_banner_bg_color": r.PhoneBannerBgColor,
		"contact_box_color":     r.ContactBoxColor,
	} {
		if v != nil && *v != "" && !hexColorPattern.MatchString(*v) {
			errs[field] = "must be a hex color like #14808a"
		}
	}
	return errs.Err()
}

// Apply copies the set fields onto w.
func (r *WebsiteSettingsRequest) Apply(w *Website) {
	assign(&w.Name, r.Name)
	assign(&w.Domain, r.Domain)
	assign(&w.PhoneNumberDisplay, r.PhoneNumberDisplay)
	assign(&w.PhoneNumberLink, r.PhoneNumberLink)
	assign(&w.RobotsTxt, r.RobotsTxt)
	assign(&w.FooterPhoneCTA, r.FooterPhoneCTA)
	assign(&w.FooterLegalDisclaimer, r.FooterLegalDisclaimer)
	assign(&w.SocialMediaBox, r.SocialMediaBox)
	assign(&w.GlobalSEOSchema, r.GlobalSEOSchema)
	assign(&w.HeaderBoxColor, r.HeaderBoxColor)
	assign(&w.PhoneBannerBgColor, r.PhoneBannerBgColor)
	assign(&w.ContactBoxColor, r.ContactBoxColor)
}

// ValidateSocialLinks returns a message for the first malformed line, or "".
func ValidateSocialLinks(box string) string {
	for line := range strings.SplitSeq(box, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !socialLinePattern.MatchString(line) {
			return "invalid line " + quote(line) + ", expected [Name](https://url)"
		}
	}
	return ""
}

// TrackingRequest updates analytics snippets.
type TrackingRequest struct {
	GoogleSearchConsoleTag *string `json:"google_search_console_tag"`
	GoogleTag              *string `json:"google_tag"`
	MetaFacebookPixel      *string `json:"meta_facebook_pixel"`
	GoogleAnalytics        *string `json:"google_analytics"`
}

func (r *TrackingRequest) Apply(w *Website) {
	assign(&w.GoogleSearchConsoleTag, r.GoogleSearchConsoleTag)
	assign(&w.GoogleTag, r.GoogleTag)
	assign(&w.MetaFacebookPixel, r.MetaFacebookPixel)
	assign(&w.GoogleAnalytics, r.GoogleAnalytics)
}

// FormSettingsRequest updates the quote form texts.
type FormSettingsRequest struct {
	FormCTA1        *string `json:"form_cta1"`
	FormCTA2        *string `json:"form_cta2"`
	FormQuestion1   *string `json:"form_question1"`
	FormQuestion2   *string `json:"form_question2"`
	FormOptions1    *string `json:"form_options1"`
	FormOptions2    *string `json:"form_options2"`
	FormQuoteButton *string `json:"form_quote_button"`
	FormNameLabel   *string `json:"form_name_label"`
	FormPhoneLabel  *string `json:"form_phone_label"`
	FormEmailLabel  *string `json:"form_email_label"`
}

func (r *FormSettingsRequest) Apply(w *Website) {
	assign(&w.FormCTA1, r.FormCTA1)
	assign(&w.FormCTA2, r.FormCTA2)
	assign(&w.FormQuestion1, r.FormQuestion1)
	assign(&w.FormQuestion2, r.FormQuestion2)
	assign(&w.FormOptions1, r.FormOptions1)
	assign(&w.FormOptions2, r.FormOptions2)
	assign(&w.FormQuoteButton, r.FormQuoteButton)
	assign(&w.FormNameLabel, r.FormNameLabel)
	assign(&w.FormPhoneLabel, r.FormPhoneLabel)
	assign(&w.FormEmailLabel, r.FormEmailLabel)
}

// PublishRequest selects the target repository of a GitHub publish.
type PublishRequest struct {
	RepoName     string `binding:"max=200" json:"repo_name"`
	ExistingRepo string `binding:"max=200" json:"existing_repo"`
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
