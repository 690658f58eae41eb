package markup

import (
	"path"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AltFromFilename derives alt text from an image path: the parenthesized part
// of the file stem when present, else the whole stem, with underscores as
// spaces and each word capitalized.
func AltFromFilename(src string) string {
	base := path.Base(src)
	text := strings.TrimSuffix(base, path.Ext(base))
	if m := parenName.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	caser := cases.Title(language.Und)
	words := strings.Fields(strings.ReplaceAll(text, "_", " "))
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// Decorate fills missing alt text with lazy loading and marks links to
// nofollow pages with rel="nofollow".
func Decorate(fragment string, nofollowURLs []string) string {
	doc, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if alt, _ := s.Attr("alt"); alt != "" {
			return
		}
		src, _ := s.Attr("src")
		s.SetAttr("alt", AltFromFilename(src))
		s.SetAttr("loading", "lazy")
	})

	if len(nofollowURLs) > 0 {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if !slices.Contains(nofollowURLs, href) {
				return
			}
			rel := strings.Fields(s.AttrOr("rel", ""))
			if !slices.Contains(rel, "nofollow") {
				rel = append(rel, "nofollow")
			}
			s.SetAttr("rel", strings.Join(rel, " "))
		})
	}

	return renderFragment(doc)
}
