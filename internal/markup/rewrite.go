// Package markup rewrites page HTML for export: remote images are pulled
// into the bundle's media tree and image inputs become plain images.
package markup

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/media"
)

const (
	defaultExt    = ".jpg"
	maxExtLen     = 6
	mediaURLDir   = "/media/websites/"
	mediaSubdir   = "websites"
	imageSelector = "img[src], input[type=image][src]"
)

var (
	parenName  = regexp.MustCompile(`\(([^)]+)\)`)
	hashSuffix = regexp.MustCompile(`_[a-f0-9]{32}$`)
	inputAttrs = []string{"src", "alt", "style", "width", "height", "class", "id"}
)

// NameGenerator supplies the unique suffix of downloaded image names.
type NameGenerator interface {
	Next() string
}

// UUIDNames yields 32 hex characters from a random UUID.
type UUIDNames struct{}

func (UUIDNames) Next() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// Rewriter localizes remote images in page HTML.
type Rewriter struct {
	fetcher media.Fetcher
	names   NameGenerator
	log     logger.Logger
}

func NewRewriter(fetcher media.Fetcher, names NameGenerator, log logger.Logger) *Rewriter {
	if names == nil {
		names = UUIDNames{}
	}
	return &Rewriter{fetcher: fetcher, names: names, log: log}
}

// Rewrite downloads every remote img/input[type=image] source into
// mediaDir/websites and points the element at /media/websites/<name>.
// Failed downloads keep the remote src. Image inputs are then converted to img.
func (r *Rewriter) Rewrite(ctx context.Context, fragment, mediaDir string, websiteID, pageID int64) string {
	doc, err := parseFragment(fragment)
	if err != nil {
		r.log.Warn("Page HTML not parseable, exported unchanged",
			logger.Int64("website_id", websiteID), logger.Int64("page_id", pageID), logger.Error(err))
		return fragment
	}

	doc.Find(imageSelector).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !strings.HasPrefix(src, "http") {
			return
		}
		name, fetchErr := r.download(ctx, src, mediaDir, websiteID, pageID)
		if fetchErr != nil {
			r.log.Warn("Inline image download failed, keeping remote src",
				logger.String("src", src), logger.Int64("page_id", pageID), logger.Error(fetchErr))
			return
		}
		s.SetAttr("src", mediaURLDir+name)
	})

	doc.Find("input[type=image]").Each(func(_ int, s *goquery.Selection) {
		img := &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img}
		for _, attr := range inputAttrs {
			if v, ok := s.Attr(attr); ok {
				img.Attr = append(img.Attr, html.Attribute{Key: attr, Val: v})
			}
		}
		s.ReplaceWithNodes(img)
	})

	return renderFragment(doc)
}

// download streams src into mediaDir/websites. A partial file is removed
// when the fetch fails.
func (r *Rewriter) download(ctx context.Context, src, mediaDir string, websiteID, pageID int64) (name string, err error) {
	dir := filepath.Join(mediaDir, mediaSubdir)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name = LocalImageName(src, websiteID, pageID, r.names.Next())
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("write image: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(dest)
			name = ""
		}
	}()

	if err = r.fetcher.Fetch(ctx, src, f); err != nil {
		return "", err
	}
	return name, nil
}

// LocalImageName builds website_{w}_page_{p}_({name})_{suffix}{ext} for src.
func LocalImageName(src string, websiteID, pageID int64, suffix string) string {
	clean, _, _ := strings.Cut(src, "?")

	ext := path.Ext(clean)
	if ext == "" || len(ext) > maxExtLen || strings.Contains(ext, "/") {
		ext = defaultExt
	}

	stem := strings.TrimSuffix(path.Base(clean), path.Ext(clean))
	if decoded, err := url.PathUnescape(stem); err == nil {
		stem = decoded
	}
	if m := parenName.FindStringSubmatch(stem); m != nil {
		stem = m[1]
	} else {
		stem = hashSuffix.ReplaceAllString(stem, "")
	}

	return fmt.Sprintf("website_%d_page_%d_(%s)_%s%s", websiteID, pageID, stem, suffix, ext)
}

var lineBreak = regexp.MustCompile(`<br ?/?>|\n`)

// Paragraphs splits HTML on <br> variants and newlines, dropping blank pieces.
func Paragraphs(fragment string) []string {
	parts := lineBreak.Split(fragment, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "&nbsp;" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func parseFragment(fragment string) (*goquery.Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(body), nil
}

func renderFragment(doc *goquery.Document) string {
	var b strings.Builder
	for n := doc.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		_ = html.Render(&b, n)
	}
	return b.String()
}
