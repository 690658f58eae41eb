package media_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves bodies by URL and fails for anything else.
type fakeFetcher struct {
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, w io.Writer) error {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return media.ErrUnexpectedStatus
	}
	_, err := w.Write(body)
	return err
}

type countingObserver map[string]int

func (c countingObserver) MediaFetched(outcome string) { c[outcome]++ }

func newResolver(t *testing.T, f media.Fetcher, obs media.Observer) (*media.Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r := media.NewResolver(f, media.ResolverConfig{Root: root, BaseURL: "https://cdn.test/media/"}, logger.NewNop(), obs)
	return r, root
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := media.NewHTTPFetcher(time.Second)

	var buf bytes.Buffer
	require.NoError(t, f.Fetch(context.Background(), srv.URL+"/ok.png", &buf))
	assert.Equal(t, "png-bytes", buf.String())

	err := f.Fetch(context.Background(), srv.URL+"/missing.png", io.Discard)
	require.ErrorIs(t, err, media.ErrUnexpectedStatus)

	err = f.WithTimeout(20*time.Millisecond).Fetch(context.Background(), srv.URL+"/slow.png", io.Discard)
	require.Error(t, err)
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, &fakeFetcher{}, nil)

	path, ok := r.Resolve(context.Background(), "  ", filepath.Join(t.TempDir(), "x"))
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestResolve_LocalFileReturnedInPlace(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{}
	obs := countingObserver{}
	r, root := newResolver(t, f, obs)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "websites"), 0o755))
	local := filepath.Join(root, "websites", "logo.png")
	require.NoError(t, os.WriteFile(local, []byte("logo"), 0o600))

	dest := filepath.Join(t.TempDir(), "logo.png")
	path, ok := r.Resolve(context.Background(), "websites/logo.png", dest)

	require.True(t, ok)
	assert.Equal(t, local, path)
	assert.NoFileExists(t, dest)
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, obs[media.OutcomeLocal])
}

func TestResolve_RelativeRefFetchedFromBaseURL(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{bodies: map[string][]byte{"https://cdn.test/media/websites/logo.png": []byte("remote")}}
	r, _ := newResolver(t, f, nil)

	dest := filepath.Join(t.TempDir(), "out", "logo.png")
	path, ok := r.Resolve(context.Background(), "websites/logo.png", dest)

	require.True(t, ok)
	assert.Equal(t, dest, path)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "remote", string(got))
}

func TestResolve_FailedFetchLeavesNoFile(t *testing.T) {
	t.Parallel()
	obs := countingObserver{}
	r, _ := newResolver(t, &fakeFetcher{}, obs)

	dest := filepath.Join(t.TempDir(), "gone.jpg")
	path, ok := r.Resolve(context.Background(), "https://img.test/gone.jpg", dest)

	assert.False(t, ok)
	assert.Empty(t, path)
	assert.NoFileExists(t, dest)
	assert.Equal(t, 1, obs[media.OutcomeFailed])
}

func TestResolve_TraversalIsNotLocal(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{}
	r, _ := newResolver(t, f, nil)

	_, ok := r.Resolve(context.Background(), "../../etc/passwd", filepath.Join(t.TempDir(), "p"))
	assert.False(t, ok)
}

func TestResolve_AbsolutePathOutsideRootIsNotLocal(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, &fakeFetcher{}, nil)

	secret := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(secret, []byte("jwt_secret: s3cr3t\n"), 0o600))

	dest := filepath.Join(t.TempDir(), "websites", "config.yml")
	assert.False(t, r.Materialize(context.Background(), secret, dest))
	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestResolve_AbsolutePathInsideRootIsLocal(t *testing.T) {
	t.Parallel()
	r, root := newResolver(t, &fakeFetcher{}, nil)
	logo := filepath.Join(root, "websites", "logo.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(logo), 0o755))
	require.NoError(t, os.WriteFile(logo, []byte("png"), 0o600))

	path, ok := r.Resolve(context.Background(), logo, filepath.Join(t.TempDir(), "x"))
	require.True(t, ok)
	assert.Equal(t, logo, path)
}

func TestMaterialize_CopiesLocal(t *testing.T) {
	t.Parallel()
	r, root := newResolver(t, &fakeFetcher{}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "favicon.ico"), []byte("ico"), 0o600))

	dest := filepath.Join(t.TempDir(), "websites", "favicon.ico")
	require.True(t, r.Materialize(context.Background(), "favicon.ico", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ico", string(got))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResolveHeading_ReencodesToJPEG(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{bodies: map[string][]byte{"https://img.test/hero.png": pngBytes(t)}}
	r, _ := newResolver(t, f, nil)

	dest := filepath.Join(t.TempDir(), "title-background.jpg")
	require.True(t, r.ResolveHeading(context.Background(), "https://img.test/hero.png", dest, ""))

	out, err := os.Open(dest)
	require.NoError(t, err)
	defer out.Close()
	cfg, format, err := image.DecodeConfig(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 4, cfg.Width)
	assert.Equal(t, color.YCbCrModel, cfg.ColorModel)
}

func TestResolveHeading_UndecodableCopiedRaw(t *testing.T) {
	t.Parallel()
	r, root := newResolver(t, &fakeFetcher{}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "hero.svg"), []byte("<svg/>"), 0o600))

	dest := filepath.Join(t.TempDir(), "title-background.jpg")
	require.True(t, r.ResolveHeading(context.Background(), "hero.svg", dest, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(got))
}

func TestResolveHeading_Fallback(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t, &fakeFetcher{}, nil)

	fallbackDir := t.TempDir()
	fallback := filepath.Join(fallbackDir, "default.jpg")
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1)), nil))
	require.NoError(t, os.WriteFile(fallback, buf.Bytes(), 0o600))

	dest := filepath.Join(t.TempDir(), "title-background.jpg")
	require.True(t, r.ResolveHeading(context.Background(), "", dest, fallback))
	assert.FileExists(t, dest)

	missing := filepath.Join(t.TempDir(), "title-background.jpg")
	assert.False(t, r.ResolveHeading(context.Background(), "", missing, filepath.Join(fallbackDir, "nope.jpg")))
	assert.NoFileExists(t, missing)
}

func TestCopyTree(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "2024", "05"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2024", "05", "a.jpg"), []byte("a"), 0o600))

	dest := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, media.CopyTree(src, dest))
	assert.FileExists(t, filepath.Join(dest, "2024", "05", "a.jpg"))

	require.NoError(t, media.CopyTree(filepath.Join(src, "absent"), dest))
}
