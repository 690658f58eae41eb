package snapshot_test

import (
	"encoding/json"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/jonesrussell/site-builder/internal/snapshot"
)

func sampleInput() snapshot.Input {
	published := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	w := models.NewWebsite("owner-1", "Acme", "Acme Plumbing", "acme-plumbing")
	w.PhoneNumberDisplay = "(555) 123-4567"
	w.SocialMediaBox = "[Facebook](https://facebook.com/acme)\n[X](https://x.com/acme)"
	w.HeaderBoxColor = ""
	w.ContactBoxColor = ""

	return snapshot.Input{
		Website: w,
		Author:  &models.Author{Name: "Acme Co", Description: "Local plumbers"},
		Pages: []models.Page{
			{Slug: "services", Title: "Services", Content: "Pipes<br>Drains", Nofollow: true, DatePublished: &published},
			{Slug: "home", Title: "Home", Content: "Welcome to our website!", IsHomepage: true},
			{Slug: "contact-us", Title: "Contact Us", Content: "Call us"},
		},
		HeaderMenu: "[Home](/)\n\t[Sub](sub)",
		FooterMenu: "Thanks for visiting\n[Contact](contact-us)",
		Assets:     snapshot.Assets{Logo: "/media/websites/logo.png"},
	}
}

func TestBuild_AppliesExportDefaults(t *testing.T) {
	site := snapshot.Builder{FormAPIKey: "key"}.Build(sampleInput())

	w := site.Website
	assert.Equal(t, snapshot.ExportHeaderBoxColor, w.HeaderBoxColor)
	assert.Equal(t, "#174d78", w.PhoneBannerBgColor)
	assert.Equal(t, snapshot.ExportContactBoxColor, w.ContactBoxColor)
	assert.Equal(t, "rgba(20, 128, 138, 0.5)", w.HeaderBoxRGBA)
	assert.Equal(t, []string{"Services", "Contact Us"}, w.FormOptions1)
	assert.Equal(t, []string{"Less than 300", "Between 300-500", "More than 500"}, w.FormOptions2)
	assert.Equal(t, []string{"/services"}, w.NofollowURLs)
	assert.Equal(t, "key", w.FormAPIKey)
	assert.Equal(t, "Acme Co", w.Author.Name)
	assert.Equal(t, []snapshot.Link{
		{Title: "Facebook", URL: "https://facebook.com/acme"},
		{Title: "X", URL: "https://x.com/acme"},
	}, w.SocialLinks)
}

func TestBuild_PagesAndMenus(t *testing.T) {
	site := snapshot.Builder{}.Build(sampleInput())

	assert.Equal(t, "home", site.HomepageSlug)
	require.Len(t, site.Pages, 3)
	assert.Equal(t, "contact-us", site.Pages[0].Slug)
	assert.Equal(t, "home", site.Pages[1].Slug)
	assert.Equal(t, "services", site.Pages[2].Slug)

	services, ok := site.Page("services")
	require.True(t, ok)
	assert.Equal(t, []string{"Pipes", "Drains"}, services.Paragraphs)
	assert.Equal(t, "2025-03-01T10:00:00Z", services.DatePublished)
	assert.Empty(t, services.DateModified)

	require.Len(t, site.HeaderMenu.Links, 1)
	require.Len(t, site.HeaderMenu.Links[0].Children, 1)
	assert.Equal(t, "/sub", site.HeaderMenu.Links[0].Children[0].URL)
	assert.Equal(t, []string{"Thanks for visiting"}, site.FooterMenu.Paragraphs)
}

func TestBuild_HomepageFallsBackToFirstPage(t *testing.T) {
	in := sampleInput()
	in.Pages[1].IsHomepage = false

	site := snapshot.Builder{}.Build(in)
	assert.Equal(t, "services", site.HomepageSlug)
}

func TestFormOptions(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, snapshot.FormOptions(" A \n\n B\n", []string{"x"}))
	assert.Equal(t, []string{"x"}, snapshot.FormOptions("  \n", []string{"x"}))
}

func TestHexToRGBA(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"#14808a", "rgba(20, 128, 138, 0.5)"},
		{"#fff", "rgba(255, 255, 255, 0.5)"},
		{"000000", "rgba(0, 0, 0, 0.5)"},
		{"#14808a55", "rgba(20, 128, 138, 0.5)"},
		{"#zzzzzz", "rgba(20, 128, 138, 0.5)"},
		{"", "rgba(20, 128, 138, 0.5)"},
	}
	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			assert.Equal(t, tt.want, snapshot.HexToRGBA(tt.hex, 0.5))
		})
	}
}

func TestSEO(t *testing.T) {
	w := snapshot.Settings{Name: "Acme & Sons", Domain: "acme.com", Logo: "/media/websites/logo.png"}
	p := snapshot.Page{Slug: "about", Title: "About <us>", Content: strings.Repeat("é", 200)}

	out := snapshot.SEO(w, p)

	assert.Contains(t, out, "\n  \"@type\": \"Article\"")
	assert.Contains(t, out, `"headline": "About <us>"`)
	assert.Contains(t, out, `"name": "Acme & Sons"`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, strings.Repeat("é", 150), doc["description"])
	entity := doc["mainEntityOfPage"].(map[string]any)
	assert.Equal(t, "acme.com/about", entity["@id"])
	publisher := doc["publisher"].(map[string]any)
	assert.Equal(t, "/media/websites/logo.png", publisher["logo"].(map[string]any)["url"])
}

func TestRoutes(t *testing.T) {
	pages := []snapshot.Page{{Slug: "about"}, {Slug: "home", IsHomepage: true}, {Slug: "zeta"}}

	routes := snapshot.Routes(pages)

	paths := make([]string, 0, len(routes))
	for _, r := range routes {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{
		"/", "/home/", "/sitemap.xml", "/robots.txt",
		"/disclaimer/", "/privacy-policy/", "/terms-of-service/", "/contact/",
		"/about/", "/zeta/",
	}, paths)
	assert.Equal(t, snapshot.ViewRedirect, routes[1].View)
	assert.Equal(t, "zeta", routes[9].Target)
}

func TestRoutes_FixedPathsWin(t *testing.T) {
	pages := []snapshot.Page{
		{Slug: "contact"},
		{Slug: "home"},
		{Slug: "start", IsHomepage: true},
		{Slug: "team"},
		{Slug: "team"},
	}

	seen := map[string]snapshot.Route{}
	for _, r := range snapshot.Routes(pages) {
		_, dup := seen[r.Path]
		assert.False(t, dup, "duplicate route %s", r.Path)
		seen[r.Path] = r
	}

	assert.Equal(t, snapshot.ViewRedirect, seen["/home/"].View)
	assert.Equal(t, "/", seen["/home/"].Target)
	assert.Equal(t, snapshot.ViewFixed, seen["/contact/"].View)
	assert.Equal(t, snapshot.ViewPage, seen["/team/"].View)
	assert.NotContains(t, seen, "/start/")
}

func TestFixedPages(t *testing.T) {
	fixed := snapshot.FixedPages(snapshot.Settings{PhoneNumberDisplay: "555-0100"})

	require.Len(t, fixed, 4)
	assert.Equal(t, "This is the disclaimer page.", fixed[0].Content)
	assert.Equal(t, "Contact us at 555-0100", fixed[3].Content)
}

func TestModulePath(t *testing.T) {
	assert.Equal(t, "acme-plumbing", snapshot.ModulePath("acme-plumbing"))
	assert.Equal(t, "example.com", snapshot.ModulePath("Example.com"))
	assert.Equal(t, "site", snapshot.ModulePath(""))
}

func newGenerator(t *testing.T, assetDir string) *snapshot.Generator {
	t.Helper()
	g, err := snapshot.NewGenerator(":8000", assetDir)
	require.NoError(t, err)
	return g
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, readErr := os.ReadFile(p)
		if readErr != nil {
			return readErr
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestGenerator_WriteArchive(t *testing.T) {
	dir := t.TempDir()
	site := snapshot.Builder{}.Build(sampleInput())

	require.NoError(t, newGenerator(t, "").Write(dir, site, snapshot.ModeArchive))
	tree := readTree(t, dir)

	for _, name := range []string{
		"main.go", "go.mod", "go.sum", "generator.go", "robots.txt",
		"site/settings.go", "site/routes.go", "site/views.go", "site/markup.go",
		"site/static_data.go", "site/static_data.json", "site/server.go",
		"templates/base.html", "templates/page.html", "templates/404.html", "templates/sitemap.xml",
		"static/css/site.css",
	} {
		assert.Contains(t, tree, name)
	}
	assert.NotContains(t, tree, "_headers")
	assert.NotContains(t, tree, "nginx.conf")
	assert.DirExists(t, filepath.Join(dir, "media"))

	assert.Equal(t, "User-agent: *\nAllow: /\nSitemap: https://acme-plumbing/sitemap.xml", tree["robots.txt"])
	assert.Contains(t, tree["go.mod"], "module acme-plumbing\n")
	assert.Contains(t, tree["main.go"], `"acme-plumbing/site"`)
	assert.Contains(t, tree["generator.go"], `":8000"`)
	assert.Contains(t, tree["site/routes.go"], `{path: "/services/", handler: v.page("services")}`)
	assert.Contains(t, tree["site/routes.go"], `{path: "/home/", handler: redirect("/")}`)
	assert.NotContains(t, tree["site/routes.go"], `v.page("home")`)
	assert.Contains(t, tree["site/routes.go"], `"Contact us at (555) 123-4567"`)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(tree["site/static_data.json"]), &data))
	assert.Equal(t, "home", data["homepage_slug"])
	assert.Len(t, data["pages"], 3)
}

func TestGenerator_GoSourcesParse(t *testing.T) {
	dir := t.TempDir()
	site := snapshot.Builder{}.Build(sampleInput())
	require.NoError(t, newGenerator(t, "").Write(dir, site, snapshot.ModeArchive))

	fset := token.NewFileSet()
	for name, src := range readTree(t, dir) {
		if !strings.HasSuffix(name, ".go") {
			continue
		}
		_, err := parser.ParseFile(fset, name, src, parser.AllErrors)
		assert.NoError(t, err, name)
	}
}

func TestGenerator_WritePublish(t *testing.T) {
	dir := t.TempDir()
	site := snapshot.Builder{}.Build(sampleInput())

	require.NoError(t, newGenerator(t, "").Write(dir, site, snapshot.ModePublish))
	tree := readTree(t, dir)

	assert.Equal(t, "/media/*\nCache-Control: public, max-age=31536000", tree["_headers"])
	assert.Equal(t, "location /media/ {\nexpires 1y;\nadd_header Cache-Control \"public\";\n} ", tree["nginx.conf"])
}

func TestGenerator_Deterministic(t *testing.T) {
	g := newGenerator(t, "")
	first, second := t.TempDir(), t.TempDir()

	require.NoError(t, g.Write(first, snapshot.Builder{}.Build(sampleInput()), snapshot.ModeArchive))
	require.NoError(t, g.Write(second, snapshot.Builder{}.Build(sampleInput()), snapshot.ModeArchive))

	assert.Equal(t, readTree(t, first), readTree(t, second))
}

func TestGenerator_AssetOverrides(t *testing.T) {
	overrides := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(overrides, "static", "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(overrides, "static", "css", "site.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(overrides, "static", "css", "bootstrap.min.css"), []byte("/*bs*/"), 0o644))

	dir := t.TempDir()
	site := snapshot.Builder{}.Build(sampleInput())
	require.NoError(t, newGenerator(t, overrides).Write(dir, site, snapshot.ModeArchive))
	tree := readTree(t, dir)

	assert.Equal(t, "body{}", tree["static/css/site.css"])
	assert.Equal(t, "/*bs*/", tree["static/css/bootstrap.min.css"])
	assert.NotContains(t, tree, "static/js/bootstrap.bundle.min.js")
}

// TestGenerator_BundleBuildsAndServes compiles the generated program with
// its shipped go.sum and runs the handler tests from testdata against it.
func TestGenerator_BundleBuildsAndServes(t *testing.T) {
	if testing.Short() {
		t.Skip("compiles the generated module")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}

	in := sampleInput()
	in.Pages = []models.Page{
		{Slug: "home", Title: "Home", Content: "Our old home page"},
		{Slug: "start", Title: "Start", Content: "Start here", IsHomepage: true},
		{Slug: "contact", Title: "Contact", Content: "Our own contact page"},
		{Slug: "services", Title: "Services", Content: `<img src="/media/élan_vital.jpg">`},
	}
	site := snapshot.Builder{}.Build(in)

	dir := t.TempDir()
	require.NoError(t, newGenerator(t, "").Write(dir, site, snapshot.ModeArchive))
	assert.FileExists(t, filepath.Join(dir, "go.sum"))

	src, err := os.ReadFile(filepath.Join("testdata", "bundle", "site", "serve_test.go"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site", "serve_test.go"), src, 0o644))

	cmd := exec.Command(goBin, "test", "./...")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOFLAGS=-mod=readonly", "GOWORK=off")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}
