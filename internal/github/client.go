// Package github is a small GitHub REST client covering what publishing
// needs: the authenticated user and their repositories.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/site-builder/infrastructure/circuitbreaker"
	infraerrors "github.com/jonesrussell/site-builder/infrastructure/errors"
	infrahttp "github.com/jonesrussell/site-builder/infrastructure/http"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/infrastructure/retry"
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	userAgent      = "site-builder/1.0"
	perPage        = 100
	maxPages       = 50
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("github: not found")

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
	Email string `json:"email"`
}

// Owner is a repository owner.
type Owner struct {
	Login string `json:"login"`
}

// Repo is a repository as returned by the API.
type Repo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	Private  bool   `json:"private"`
	Owner    Owner  `json:"owner"`
}

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks . API

// API is the subset of GitHub used by publishing.
type API interface {
	CurrentUser(ctx context.Context) (*User, error)
	ListRepos(ctx context.Context) ([]Repo, error)
	GetRepo(ctx context.Context, owner, name string) (*Repo, error)
	CreateRepo(ctx context.Context, name string, private bool) (*Repo, error)
}

// Config configures Client. Zero values take defaults.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             retry.Config
	// Breaker stops calling GitHub after repeated outages.
	Breaker circuitbreaker.Config
}

// Client talks to the GitHub REST API with a bearer token.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	retry   retry.Config
	breaker *circuitbreaker.Breaker
	log     logger.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = isOutage
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(from, to circuitbreaker.State) {
			log.Warn("GitHub circuit breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}
	}

	return &Client{
		http:    infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: cfg.Timeout, UserAgent: userAgent}),
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		limiter: rate.NewLimiter(limit, 1),
		retry:   cfg.Retry,
		breaker: circuitbreaker.New(cfg.Breaker),
		log:     log,
	}
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &u); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListRepos returns every repository of the authenticated user.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	var all []Repo
	for page := 1; page <= maxPages; page++ {
		q := url.Values{"per_page": {strconv.Itoa(perPage)}, "page": {strconv.Itoa(page)}}
		var batch []Repo
		if err := c.do(ctx, http.MethodGet, "/user/repos?"+q.Encode(), nil, &batch); err != nil {
			return nil, fmt.Errorf("list repos: %w", err)
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

func (c *Client) GetRepo(ctx context.Context, owner, name string) (*Repo, error) {
	var r Repo
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, fmt.Errorf("get repo %s/%s: %w", owner, name, err)
	}
	return &r, nil
}

func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (*Repo, error) {
	body := map[string]any{"name": name, "private": private}
	var r Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &r); err != nil {
		return nil, fmt.Errorf("create repo %s: %w", name, err)
	}
	c.log.Info("Created GitHub repository",
		logger.String("repository", r.FullName),
		logger.Bool("private", r.Private),
	)
	return &r, nil
}

// do sends one API call through the breaker, retrying network errors, 5xx and 429.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	return c.breaker.Execute(func() error {
		return c.attempt(ctx, method, path, payload, out)
	})
}

// isOutage counts network errors, 5xx and 429 against the breaker.
func isOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if status, ok := infraerrors.StatusCode(err); ok {
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrNotFound)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		var reader io.Reader = http.NoBody
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn("GitHub request failed",
				logger.String("method", method),
				logger.String("path", path),
				logger.Error(err),
			)
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if apiErr := infraerrors.ParseHTTPError(resp); apiErr != nil {
			var httpErr *infraerrors.HTTPError
			if errors.As(apiErr, &httpErr) && httpErr.Temporary() {
				return apiErr
			}
			if resp.StatusCode == http.StatusNotFound {
				return retry.Permanent(fmt.Errorf("%w: %w", ErrNotFound, apiErr))
			}
			return retry.Permanent(apiErr)
		}

		if out == nil {
			return nil
		}
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}
