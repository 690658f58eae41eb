package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
)

const descriptionLen = 150

type organization struct {
	Type string       `json:"@type"`
	Name string       `json:"name"`
	Logo *imageObject `json:"logo,omitempty"`
}

type imageObject struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

type webPage struct {
	Type string `json:"@type"`
	ID   string `json:"@id"`
}

type article struct {
	Context          string       `json:"@context"`
	Type             string       `json:"@type"`
	Headline         string       `json:"headline"`
	Description      string       `json:"description"`
	DatePublished    string       `json:"datePublished"`
	DateModified     string       `json:"dateModified"`
	Author           organization `json:"author"`
	Publisher        organization `json:"publisher"`
	MainEntityOfPage webPage      `json:"mainEntityOfPage"`
}

// SEO renders the Article JSON-LD for a page.
func SEO(w Settings, p Page) string {
	doc := article{
		Context:       "https://schema.org",
		Type:          "Article",
		Headline:      p.Title,
		Description:   truncateRunes(p.Content, descriptionLen),
		DatePublished: p.DatePublished,
		DateModified:  p.DateModified,
		Author:        organization{Type: "Organization", Name: w.Name},
		Publisher: organization{
			Type: "Organization",
			Name: w.Name,
			Logo: &imageObject{Type: "ImageObject", URL: w.Logo},
		},
		MainEntityOfPage: webPage{Type: "WebPage", ID: w.Domain + "/" + p.Slug},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
