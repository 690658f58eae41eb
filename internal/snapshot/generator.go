package snapshot

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/jonesrussell/site-builder/internal/menu"
)

// Mode selects what the bundle is produced for.
type Mode string

const (
	ModeArchive Mode = "archive"
	ModePublish Mode = "publish"
)

const (
	bundleRoot = "bundle"
	assetRoot  = "assets"
	tmplSuffix = ".tmpl"

	dirPerm  = 0o755
	filePerm = 0o644

	// StaticDataFile is the embedded snapshot inside the generated program.
	StaticDataFile = "site/static_data.json"

	headersFile = "_headers"
	nginxFile   = "nginx.conf"

	headersContent = "/media/*\nCache-Control: public, max-age=31536000"
	nginxContent   = "location /media/ {\nexpires 1y;\nadd_header Cache-Control \"public\";\n} "
)

// Optional assets are copied from the override directory only when present.
var optionalAssets = []string{
	"static/css/bootstrap.min.css",
	"static/js/bootstrap.bundle.min.js",
}

var modulePathUnsafe = regexp.MustCompile(`[^a-z0-9.\-]+`)

//go:embed bundle assets
var files embed.FS

// Generator writes the bundle for a site.
type Generator struct {
	listen   string
	assetDir string
	tmpl     *template.Template
}

// NewGenerator parses the embedded sources. assetDir may shadow any fixed
// asset and supplies the optional ones; empty disables overrides.
func NewGenerator(listen, assetDir string) (*Generator, error) {
	funcs := template.FuncMap{
		"quote": strconv.Quote,
	}
	tmpl := template.New(bundleRoot).Funcs(funcs)

	err := fs.WalkDir(files, bundleRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, readErr := files.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		if _, parseErr := tmpl.New(p).Parse(string(raw)); parseErr != nil {
			return fmt.Errorf("parse %s: %w", p, parseErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load bundle templates: %w", err)
	}

	return &Generator{listen: listen, assetDir: assetDir, tmpl: tmpl}, nil
}

type bundleData struct {
	Module string
	Listen string
	Robots string
	Fixed  []FixedPage
	Site   *Site
}

type staticData struct {
	Website      Settings        `json:"website"`
	Pages        map[string]Page `json:"pages"`
	HomepageSlug string          `json:"homepage_slug"`
	HeaderMenu   menu.Menu       `json:"header_menu"`
	FooterMenu   menu.Menu       `json:"footer_menu"`
}

// Write renders the bundle into dir. The output depends only on site and mode.
func (g *Generator) Write(dir string, site *Site, mode Mode) error {
	data := bundleData{
		Module: ModulePath(site.Website.Domain),
		Listen: g.listen,
		Robots: RobotsTxt(site.Website.Domain),
		Fixed:  FixedPages(site.Website),
		Site:   site,
	}

	for _, t := range g.tmpl.Templates() {
		name := t.Name()
		if !strings.HasPrefix(name, bundleRoot+"/") {
			continue
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		rel := strings.TrimSuffix(strings.TrimPrefix(name, bundleRoot+"/"), tmplSuffix)
		if err := writeFile(dir, rel, buf.Bytes()); err != nil {
			return err
		}
	}

	payload, err := encodeStaticData(site)
	if err != nil {
		return err
	}
	if err = writeFile(dir, StaticDataFile, payload); err != nil {
		return err
	}

	if err = writeFile(dir, "robots.txt", []byte(data.Robots)); err != nil {
		return err
	}

	if err = g.copyAssets(dir); err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Join(dir, "media"), dirPerm); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	if mode == ModePublish {
		if err = writeFile(dir, headersFile, []byte(headersContent)); err != nil {
			return err
		}
		if err = writeFile(dir, nginxFile, []byte(nginxContent)); err != nil {
			return err
		}
	}
	return nil
}

// RobotsTxt is the robots.txt served by the bundle.
func RobotsTxt(domain string) string {
	return "User-agent: *\nAllow: /\nSitemap: https://" + domain + "/sitemap.xml"
}

// ModulePath derives the generated program's module path from the domain.
func ModulePath(domain string) string {
	p := strings.Trim(modulePathUnsafe.ReplaceAllString(strings.ToLower(domain), "-"), "-.")
	if p == "" {
		return "site"
	}
	return p
}

func encodeStaticData(site *Site) ([]byte, error) {
	sd := staticData{
		Website:      site.Website,
		Pages:        make(map[string]Page, len(site.Pages)),
		HomepageSlug: site.HomepageSlug,
		HeaderMenu:   site.HeaderMenu,
		FooterMenu:   site.FooterMenu,
	}
	for _, p := range site.Pages {
		sd.Pages[p.Slug] = p
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sd); err != nil {
		return nil, fmt.Errorf("encode static data: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) copyAssets(dir string) error {
	err := fs.WalkDir(files, assetRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(p, assetRoot+"/")
		if ok, copyErr := g.copyOverride(dir, rel); ok || copyErr != nil {
			return copyErr
		}
		raw, readErr := files.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		return writeFile(dir, rel, raw)
	})
	if err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}

	for _, rel := range optionalAssets {
		if _, err = g.copyOverride(dir, rel); err != nil {
			return fmt.Errorf("copy assets: %w", err)
		}
	}
	return nil
}

// copyOverride copies rel from the override directory when it exists there.
func (g *Generator) copyOverride(dir, rel string) (bool, error) {
	if g.assetDir == "" {
		return false, nil
	}
	raw, err := os.ReadFile(filepath.Join(g.assetDir, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read override %s: %w", rel, err)
	}
	return true, writeFile(dir, rel, raw)
}

func writeFile(dir, rel string, content []byte) error {
	dest := filepath.Join(dir, filepath.FromSlash(path.Clean(rel)))
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, content, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
