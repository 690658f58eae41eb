// Package media resolves file references to local files, downloading remote
// ones on a best-effort basis.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	infrahttp "github.com/jonesrussell/site-builder/infrastructure/http"
)

// ErrUnexpectedStatus is returned for any non-200 response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher copies the body of url into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) error
}

const userAgent = "site-builder-export/1.0"

// HTTPFetcher fetches over HTTP with a per-call timeout.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPFetcher returns a Fetcher bounded by timeout per call.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:  infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout, UserAgent: userAgent}),
		timeout: timeout,
	}
}

// WithTimeout returns a copy sharing the client but with a different deadline.
func (f *HTTPFetcher) WithTimeout(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: f.client, timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	return nil
}
