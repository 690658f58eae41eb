package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonesrussell/site-builder/infrastructure/logger"
)

// Observer receives one outcome per remote fetch attempt.
type Observer interface {
	MediaFetched(outcome string)
}

// Fetch outcomes reported to the Observer.
const (
	OutcomeLocal   = "local"
	OutcomeFetched = "fetched"
	OutcomeFailed  = "failed"
)

// ResolverConfig locates stored media.
type ResolverConfig struct {
	// Root is the media root directory; relative refs are looked up under it.
	Root string
	// BaseURL is the public URL of Root, used to fetch refs not found locally.
	BaseURL string
}

// Resolver turns a stored file reference into a readable local file.
type Resolver struct {
	fetcher  Fetcher
	cfg      ResolverConfig
	log      logger.Logger
	observer Observer
}

func NewResolver(fetcher Fetcher, cfg ResolverConfig, log logger.Logger, observer Observer) *Resolver {
	return &Resolver{fetcher: fetcher, cfg: cfg, log: log, observer: observer}
}

// Resolve returns a local path holding the content of ref. Existing local
// files are returned in place; anything else is fetched into dest. Failures
// are logged and reported as absent.
func (r *Resolver) Resolve(ctx context.Context, ref, dest string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	if local, ok := r.localPath(ref); ok {
		r.observe(OutcomeLocal)
		return local, true
	}

	src, err := r.remoteURL(ref)
	if err != nil {
		r.log.Warn("Media reference is not resolvable", logger.String("ref", ref), logger.Error(err))
		r.observe(OutcomeFailed)
		return "", false
	}

	if err = r.download(ctx, src, dest); err != nil {
		r.log.Warn("Media fetch failed, skipping", logger.String("url", src), logger.Error(err))
		r.observe(OutcomeFailed)
		return "", false
	}

	r.observe(OutcomeFetched)
	return dest, true
}

// Materialize resolves ref and guarantees the content ends up at dest.
func (r *Resolver) Materialize(ctx context.Context, ref, dest string) bool {
	path, ok := r.Resolve(ctx, ref, dest)
	if !ok {
		return false
	}
	if path == dest {
		return true
	}
	if err := copyFile(path, dest); err != nil {
		r.log.Warn("Media copy failed, skipping", logger.String("src", path), logger.Error(err))
		return false
	}
	return true
}

// localPath maps ref onto a regular file below the media root. Absolute
// refs are accepted only when they already point inside the root.
func (r *Resolver) localPath(ref string) (string, bool) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || r.cfg.Root == "" {
		return "", false
	}

	root, err := filepath.Abs(r.cfg.Root)
	if err != nil {
		return "", false
	}
	candidate := filepath.FromSlash(strings.TrimPrefix(ref, "/media/"))
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	if !within(root, filepath.Clean(candidate)) {
		return "", false
	}

	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return candidate, true
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var errNoBaseURL = errors.New("no media base url configured")

func (r *Resolver) remoteURL(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	if r.cfg.BaseURL == "" || filepath.IsAbs(ref) {
		return "", errNoBaseURL
	}
	base, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse media base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.JoinPath(strings.TrimPrefix(ref, "/")).String(), nil
}

func (r *Resolver) download(ctx context.Context, src, dest string) (err error) {
	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	return r.fetcher.Fetch(ctx, src, f)
}

func (r *Resolver) observe(outcome string) {
	if r.observer != nil {
		r.observer.MediaFetched(outcome)
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", dest, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return out.Close()
}

// CopyTree copies every regular file below src into dest. A missing src is not an error.
func CopyTree(src, dest string) error {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}
