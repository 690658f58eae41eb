// Package export runs the website export pipeline: resolve media, rewrite
// page markup, build the snapshot and hand the bundle to a sink.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	infraevents "github.com/jonesrussell/site-builder/infrastructure/events"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/github"
	"github.com/jonesrussell/site-builder/internal/markup"
	"github.com/jonesrussell/site-builder/internal/media"
	"github.com/jonesrussell/site-builder/internal/menu"
	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/jonesrussell/site-builder/internal/sink"
	"github.com/jonesrussell/site-builder/internal/snapshot"
	"github.com/jonesrussell/site-builder/internal/telemetry"
)

const (
	siteDirName     = "site"
	tempPattern     = "site-export-*"
	mediaDirName    = "media"
	websitesDirName = "websites"
	mediaURLPrefix  = "/media/websites/"
	uploadsDirName  = "uploads"
	headingFileName = "title-background.jpg"
)

// WebsiteStore loads websites and records publish targets.
type WebsiteStore interface {
	Get(ctx context.Context, id int64, ownerID string) (*models.Website, error)
	GetByID(ctx context.Context, id int64) (*models.Website, error)
	SetRepository(ctx context.Context, id int64, repoURL string, public bool) error
}

// PageStore lists a website's pages.
type PageStore interface {
	List(ctx context.Context, websiteID int64) ([]models.Page, error)
}

// MenuStore loads saved menus.
type MenuStore interface {
	Get(ctx context.Context, websiteID int64, t models.MenuType) (*models.Menu, error)
}

// AuthorStore loads the website's author.
type AuthorStore interface {
	GetForWebsite(ctx context.Context, websiteID int64) (*models.Author, error)
}

// Publisher pushes a bundle directory to a repository.
type Publisher interface {
	Publish(ctx context.Context, dir string, t sink.Target) (sink.Result, error)
}

// EventPublisher receives lifecycle events.
type EventPublisher interface {
	PublishAsync(event infraevents.WebsiteEvent)
}

// Stores groups the persistence dependencies.
type Stores struct {
	Websites WebsiteStore
	Pages    PageStore
	Menus    MenuStore
	Authors  AuthorStore
}

// Config holds the export settings the service needs.
type Config struct {
	// WorkDir holds per-export temp directories; empty uses os.TempDir.
	WorkDir string
	// MediaRoot is the stored media directory; its uploads tree is bundled.
	MediaRoot string
	// DefaultHeading is copied when a website has no usable heading image.
	DefaultHeading string
	// GitHubToken authenticates pushes.
	GitHubToken string
}

// Service runs exports. Every export works in its own temp directory.
type Service struct {
	cfg       Config
	stores    Stores
	resolver  *media.Resolver
	rewriter  *markup.Rewriter
	generator *snapshot.Generator
	builder   snapshot.Builder
	github    github.API
	publisher Publisher
	events    EventPublisher
	metrics   *telemetry.Metrics
	log       logger.Logger
}

// Deps are the collaborators of a Service. GitHub, Publisher, Events and
// Metrics may be nil; publishing then fails with ErrPublishDisabled.
type Deps struct {
	Stores    Stores
	Resolver  *media.Resolver
	Rewriter  *markup.Rewriter
	Generator *snapshot.Generator
	Builder   snapshot.Builder
	GitHub    github.API
	Publisher Publisher
	Events    EventPublisher
	Metrics   *telemetry.Metrics
	Logger    logger.Logger
}

// ErrPublishDisabled is returned when no GitHub credentials are configured.
var ErrPublishDisabled = errors.New("github publishing is not configured")

// NewService creates an export service.
func NewService(cfg Config, deps Deps) *Service {
	return &Service{
		cfg:       cfg,
		stores:    deps.Stores,
		resolver:  deps.Resolver,
		rewriter:  deps.Rewriter,
		generator: deps.Generator,
		builder:   deps.Builder,
		github:    deps.GitHub,
		publisher: deps.Publisher,
		events:    deps.Events,
		metrics:   deps.Metrics,
		log:       deps.Logger,
	}
}

// ArchiveFile is a finished zip. Close removes it with its work directory.
type ArchiveFile struct {
	Path     string
	Name     string
	Size     int64
	workRoot string
}

// Close removes the archive and everything built for it.
func (a *ArchiveFile) Close() error {
	return os.RemoveAll(a.workRoot)
}

// Archive builds the bundle for an owned website and zips it.
func (s *Service) Archive(ctx context.Context, websiteID int64, ownerID string) (*ArchiveFile, error) {
	w, err := s.stores.Websites.Get(ctx, websiteID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, w)
}

// ArchiveByID is Archive without the ownership check, for operator tooling.
func (s *Service) ArchiveByID(ctx context.Context, websiteID int64) (*ArchiveFile, error) {
	w, err := s.stores.Websites.GetByID(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, w)
}

func (s *Service) archive(ctx context.Context, w *models.Website) (file *ArchiveFile, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ExportFinished(string(snapshot.ModeArchive), outcome(err), time.Since(start))
	}()

	root, dir, err := s.workspace()
	if err != nil {
		return nil, err
	}
	// The zip outlives this call; the caller's Close removes root.
	defer func() {
		if err != nil {
			_ = os.RemoveAll(root)
		}
	}()

	pages, err := s.build(ctx, w, dir, snapshot.ModeArchive)
	if err != nil {
		return nil, err
	}

	name := w.Domain + ".zip"
	zipPath, err := sink.Archive(dir, name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	s.log.Info("Website exported",
		logger.Int64("website_id", w.ID),
		logger.String("domain", w.Domain),
		logger.Int("pages", pages),
		logger.Int64("bytes", info.Size()),
		logger.Duration("elapsed", time.Since(start)),
	)
	s.emit(infraevents.New(infraevents.WebsiteExported, w.ID, w.OwnerID, infraevents.ExportedPayload{
		Domain:    w.Domain,
		Pages:     pages,
		Bytes:     info.Size(),
		ElapsedMS: time.Since(start).Milliseconds(),
	}))

	return &ArchiveFile{Path: zipPath, Name: name, Size: info.Size(), workRoot: root}, nil
}

// PublishResult describes a finished publish.
type PublishResult struct {
	Repository string `json:"repository"`
	CloneURL   string `json:"clone_url"`
	Private    bool   `json:"private"`
	Committed  bool   `json:"committed"`
	Commit     string `json:"commit,omitempty"`
}

// Publish builds the bundle and pushes it to the selected repository. The
// website records the repository only after a successful push.
func (s *Service) Publish(ctx context.Context, websiteID int64, ownerID string, req models.PublishRequest) (res *PublishResult, err error) {
	w, err := s.stores.Websites.Get(ctx, websiteID, ownerID)
	if err != nil {
		return nil, err
	}

	sel := github.Selection{RepoName: req.RepoName, Existing: req.ExistingRepo, Connected: w.GitHubRepo}
	if sel.RepoName == "" && sel.Existing == "" && sel.Connected == "" {
		return nil, github.ErrRepoRequired
	}
	if s.github == nil || s.publisher == nil || s.cfg.GitHubToken == "" {
		return nil, ErrPublishDisabled
	}

	start := time.Now()
	defer func() {
		s.metrics.ExportFinished(string(snapshot.ModePublish), outcome(err), time.Since(start))
		switch {
		case err != nil:
			s.metrics.PublishFinished(telemetry.OutcomeError)
		case !res.Committed:
			s.metrics.PublishFinished(telemetry.OutcomeNoop)
		default:
			s.metrics.PublishFinished(telemetry.OutcomeSuccess)
		}
	}()

	user, err := s.github.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get github user: %w", err)
	}
	repo, err := github.SelectRepo(ctx, s.github, user.Login, sel)
	if err != nil {
		return nil, err
	}

	root, dir, err := s.workspace()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(root)

	if _, err = s.build(ctx, w, dir, snapshot.ModePublish); err != nil {
		return nil, err
	}

	owner := repo.Owner.Login
	if owner == "" {
		owner = user.Login
	}
	out, err := s.publisher.Publish(ctx, dir, sink.Target{
		Owner:    owner,
		Repo:     repo.Name,
		Login:    user.Login,
		Email:    user.Email,
		Token:    s.cfg.GitHubToken,
		SiteName: w.Name,
	})
	if err != nil {
		return nil, err
	}

	if err = s.stores.Websites.SetRepository(ctx, w.ID, repo.CloneURL, !repo.Private); err != nil {
		return nil, fmt.Errorf("save repository: %w", err)
	}

	s.log.Info("Website published",
		logger.Int64("website_id", w.ID),
		logger.String("repository", repo.FullName),
		logger.Bool("committed", out.Committed),
		logger.String("commit", out.Commit),
	)
	s.emit(infraevents.New(infraevents.WebsitePublished, w.ID, w.OwnerID, infraevents.PublishedPayload{
		Repository: repo.FullName,
		Committed:  out.Committed,
		Commit:     out.Commit,
	}))

	return &PublishResult{
		Repository: repo.FullName,
		CloneURL:   repo.CloneURL,
		Private:    repo.Private,
		Committed:  out.Committed,
		Commit:     out.Commit,
	}, nil
}

// workspace creates a fresh temp root with an empty bundle directory.
func (s *Service) workspace() (root, dir string, err error) {
	root, err = os.MkdirTemp(s.cfg.WorkDir, tempPattern)
	if err != nil {
		return "", "", fmt.Errorf("create work dir: %w", err)
	}
	dir = filepath.Join(root, siteDirName)
	if err = os.Mkdir(dir, 0o755); err != nil {
		_ = os.RemoveAll(root)
		return "", "", fmt.Errorf("create bundle dir: %w", err)
	}
	return root, dir, nil
}

// build writes the bundle for w into dir and returns the page count.
func (s *Service) build(ctx context.Context, w *models.Website, dir string, mode snapshot.Mode) (int, error) {
	pages, err := s.stores.Pages.List(ctx, w.ID)
	if err != nil {
		return 0, err
	}
	header, err := s.menuContent(ctx, w, models.MenuHeader, pages)
	if err != nil {
		return 0, err
	}
	footer, err := s.menuContent(ctx, w, models.MenuFooter, pages)
	if err != nil {
		return 0, err
	}
	author, err := s.stores.Authors.GetForWebsite(ctx, w.ID)
	if errors.Is(err, models.ErrNotFound) {
		author, err = nil, nil
	}
	if err != nil {
		return 0, err
	}

	mediaDir := filepath.Join(dir, mediaDirName)
	websitesDir := filepath.Join(mediaDir, websitesDirName)
	if err = os.MkdirAll(websitesDir, 0o755); err != nil {
		return 0, fmt.Errorf("create media dir: %w", err)
	}

	assets := snapshot.Assets{
		Favicon: s.brandAsset(ctx, w.Favicon, websitesDir),
		Logo:    s.brandAsset(ctx, w.Logo, websitesDir),
	}
	if author != nil {
		assets.AuthorLogo = s.brandAsset(ctx, author.Logo, websitesDir)
	}
	s.resolver.ResolveHeading(ctx, w.HeadingBackgroundImage,
		filepath.Join(websitesDir, headingFileName), s.defaultHeading())

	if s.cfg.MediaRoot != "" {
		if err = media.CopyTree(filepath.Join(s.cfg.MediaRoot, uploadsDirName), filepath.Join(mediaDir, uploadsDirName)); err != nil {
			s.log.Warn("Uploads copy failed, continuing", logger.Int64("website_id", w.ID), logger.Error(err))
		}
	}

	for i := range pages {
		pages[i].Content = s.rewriter.Rewrite(ctx, pages[i].Content, mediaDir, w.ID, pages[i].ID)
	}

	site := s.builder.Build(snapshot.Input{
		Website:    w,
		Author:     author,
		Pages:      pages,
		HeaderMenu: header,
		FooterMenu: footer,
		Assets:     assets,
	})
	if err = s.generator.Write(dir, site, mode); err != nil {
		return 0, err
	}
	return len(pages), nil
}

// menuContent returns the saved menu, or the default content when the
// website never saved one or saved it blank.
func (s *Service) menuContent(ctx context.Context, w *models.Website, t models.MenuType, pages []models.Page) (string, error) {
	m, err := s.stores.Menus.Get(ctx, w.ID, t)
	if errors.Is(err, models.ErrNotFound) {
		return menu.Default(t, pages, w.OwnerName), nil
	}
	if err != nil {
		return "", err
	}
	return menu.Content(m.Content, t, pages, w.OwnerName), nil
}

// brandAsset copies ref into dir under its base name and returns the
// bundle URL, or "" when the file could not be resolved.
func (s *Service) brandAsset(ctx context.Context, ref, dir string) string {
	if ref == "" {
		return ""
	}
	name := path.Base(filepath.ToSlash(ref))
	if name == "." || name == "/" {
		return ""
	}
	if !s.resolver.Materialize(ctx, ref, filepath.Join(dir, name)) {
		return ""
	}
	return mediaURLPrefix + name
}

func (s *Service) defaultHeading() string {
	if s.cfg.DefaultHeading != "" {
		return s.cfg.DefaultHeading
	}
	if s.cfg.MediaRoot == "" {
		return ""
	}
	return filepath.Join(s.cfg.MediaRoot, websitesDirName, headingFileName)
}

func (s *Service) emit(event infraevents.WebsiteEvent) {
	if s.events != nil {
		s.events.PublishAsync(event)
	}
}

func outcome(err error) string {
	if err != nil {
		return telemetry.OutcomeError
	}
	return telemetry.OutcomeSuccess
}
