package markup_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/markup"
	"github.com/jonesrussell/site-builder/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher map[string]string

func (s stubFetcher) Fetch(_ context.Context, url string, w io.Writer) error {
	body, ok := s[url]
	if !ok {
		return media.ErrUnexpectedStatus
	}
	_, err := io.WriteString(w, body)
	return err
}

type fixedNames string

func (f fixedNames) Next() string { return string(f) }

const suffix = "0123456789abcdef0123456789abcdef"

func TestLocalImageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "parenthesized name wins",
			src:  "https://cdn.test/u/website_1_page_2_%28Blue%20Roof%29_aaaa.png?w=200",
			want: "website_7_page_9_(Blue Roof)_" + suffix + ".png",
		},
		{
			name: "hash suffix stripped",
			src:  "https://cdn.test/u/kitchen_0123456789abcdef0123456789abcdef.webp",
			want: "website_7_page_9_(kitchen)_" + suffix + ".webp",
		},
		{
			name: "missing extension defaults to jpg",
			src:  "https://cdn.test/photo",
			want: "website_7_page_9_(photo)_" + suffix + ".jpg",
		},
		{
			name: "implausible extension defaults to jpg",
			src:  "https://cdn.test/render.download",
			want: "website_7_page_9_(render)_" + suffix + ".jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, markup.LocalImageName(tt.src, 7, 9, suffix))
		})
	}
}

func TestRewrite_DownloadsRemoteImages(t *testing.T) {
	t.Parallel()

	fetcher := stubFetcher{"https://cdn.test/roof.png": "png-bytes"}
	r := markup.NewRewriter(fetcher, fixedNames(suffix), logger.NewNop())
	mediaDir := t.TempDir()

	out := r.Rewrite(context.Background(),
		`<p>Intro</p><img src="https://cdn.test/roof.png" alt="Roof"><img src="/media/local.jpg">`,
		mediaDir, 3, 4)

	name := "website_3_page_4_(roof)_" + suffix + ".png"
	assert.Contains(t, out, `src="/media/websites/`+name+`"`)
	assert.Contains(t, out, `src="/media/local.jpg"`)
	assert.True(t, strings.HasPrefix(out, "<p>Intro</p>"))

	got, err := os.ReadFile(filepath.Join(mediaDir, "websites", name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
}

func TestRewrite_FailedDownloadKeepsRemoteSrc(t *testing.T) {
	t.Parallel()

	r := markup.NewRewriter(stubFetcher{}, fixedNames(suffix), logger.NewNop())
	mediaDir := t.TempDir()

	out := r.Rewrite(context.Background(), `<img src="https://cdn.test/missing.jpg">`, mediaDir, 1, 1)

	assert.Equal(t, `<img src="https://cdn.test/missing.jpg"/>`, out)
	assertNoImages(t, mediaDir)
}

// truncatingFetcher writes part of the body before failing.
type truncatingFetcher struct{}

func (truncatingFetcher) Fetch(_ context.Context, _ string, w io.Writer) error {
	if _, err := io.WriteString(w, "partial"); err != nil {
		return err
	}
	return errors.New("connection reset")
}

func TestRewrite_InterruptedDownloadLeavesNoFile(t *testing.T) {
	t.Parallel()

	r := markup.NewRewriter(truncatingFetcher{}, fixedNames(suffix), logger.NewNop())
	mediaDir := t.TempDir()

	out := r.Rewrite(context.Background(), `<img src="https://cdn.test/big.jpg">`, mediaDir, 1, 1)

	assert.Equal(t, `<img src="https://cdn.test/big.jpg"/>`, out)
	assertNoImages(t, mediaDir)
}

func assertNoImages(t *testing.T, mediaDir string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(mediaDir, "websites"))
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRewrite_ConvertsImageInputs(t *testing.T) {
	t.Parallel()

	fetcher := stubFetcher{"https://cdn.test/btn.gif": "gif"}
	r := markup.NewRewriter(fetcher, fixedNames(suffix), logger.NewNop())

	out := r.Rewrite(context.Background(),
		`<form><input type="image" src="https://cdn.test/btn.gif" alt="Go" class="cta" id="go" name="dropped" width="10"></form>`,
		t.TempDir(), 1, 2)

	assert.NotContains(t, out, "<input")
	assert.Contains(t, out, `<img src="/media/websites/website_1_page_2_(btn)_`+suffix+`.gif" alt="Go" width="10" class="cta" id="go"/>`)
	assert.NotContains(t, out, "dropped")
}

func TestRewrite_NoRemoteImagesIsStable(t *testing.T) {
	t.Parallel()

	r := markup.NewRewriter(stubFetcher{}, markup.UUIDNames{}, logger.NewNop())
	in := `<h2>Services</h2><p>We fix roofs.<br/>Call today.</p>`

	first := r.Rewrite(context.Background(), in, t.TempDir(), 1, 1)
	second := r.Rewrite(context.Background(), first, t.TempDir(), 1, 1)
	assert.Equal(t, first, second)
}

func TestUUIDNames(t *testing.T) {
	t.Parallel()

	a, b := markup.UUIDNames{}.Next(), markup.UUIDNames{}.Next()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestParagraphs(t *testing.T) {
	t.Parallel()

	got := markup.Paragraphs("<p>One<br>Two<br/>  \n<br />&nbsp;\nThree</p>")
	assert.Equal(t, []string{"<p>One", "Two", "Three</p>"}, got)
	assert.Empty(t, markup.Paragraphs(" \n "))
}

func TestAltFromFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Blue Roof", markup.AltFromFilename("/media/websites/website_1_page_2_(blue_roof)_abc.jpg"))
	assert.Equal(t, "Kitchen Remodel After", markup.AltFromFilename("/uploads/kitchen_remodel_AFTER.png"))
	assert.Empty(t, markup.AltFromFilename(""))
}

func TestDecorate(t *testing.T) {
	t.Parallel()

	in := `<img src="/media/hero_shot.jpg"><img src="/x.png" alt="Kept">` +
		`<a href="/private">p</a><a href="/public">q</a><a href="/private" rel="noopener">r</a>`

	out := markup.Decorate(in, []string{"/private"})

	assert.Contains(t, out, `<img src="/media/hero_shot.jpg" alt="Hero Shot" loading="lazy"/>`)
	assert.Contains(t, out, `<img src="/x.png" alt="Kept"/>`)
	assert.Contains(t, out, `<a href="/private" rel="nofollow">p</a>`)
	assert.Contains(t, out, `<a href="/public">q</a>`)
	assert.Contains(t, out, `<a href="/private" rel="noopener nofollow">r</a>`)
}
