package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	infragin "github.com/jonesrussell/site-builder/infrastructure/gin"
	"github.com/jonesrussell/site-builder/infrastructure/jwt"
	"github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/api"
	"github.com/jonesrussell/site-builder/internal/export"
	"github.com/jonesrussell/site-builder/internal/github"
	"github.com/jonesrussell/site-builder/internal/handlers"
	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const (
	testSecret = "test-secret"
	testOwner  = "owner-1"
)

type MockWebsiteStore struct {
	mock.Mock
}

func (m *MockWebsiteStore) Create(ctx context.Context, w *models.Website) (*models.Website, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Website), args.Error(1)
}

func (m *MockWebsiteStore) List(ctx context.Context, ownerID string) ([]models.Website, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Website), args.Error(1)
}

func (m *MockWebsiteStore) Get(ctx context.Context, id int64, ownerID string) (*models.Website, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Website), args.Error(1)
}

func (m *MockWebsiteStore) Update(ctx context.Context, w *models.Website) (*models.Website, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Website), args.Error(1)
}

func (m *MockWebsiteStore) SetAsset(ctx context.Context, id int64, ownerID string, kind models.AssetKind, ref string) error {
	return m.Called(ctx, id, ownerID, kind, ref).Error(0)
}

func (m *MockWebsiteStore) Delete(ctx context.Context, id int64, ownerID string) error {
	return m.Called(ctx, id, ownerID).Error(0)
}

type MockAuthorStore struct {
	mock.Mock
}

func (m *MockAuthorStore) GetForWebsite(ctx context.Context, websiteID int64) (*models.Author, error) {
	args := m.Called(ctx, websiteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Author), args.Error(1)
}

func (m *MockAuthorStore) Save(ctx context.Context, websiteID int64, req *models.AuthorRequest) (*models.Author, error) {
	args := m.Called(ctx, websiteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Author), args.Error(1)
}

type MockPageStore struct {
	mock.Mock
}

func (m *MockPageStore) List(ctx context.Context, websiteID int64) ([]models.Page, error) {
	args := m.Called(ctx, websiteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Page), args.Error(1)
}

func (m *MockPageStore) Get(ctx context.Context, websiteID, pageID int64) (*models.Page, error) {
	args := m.Called(ctx, websiteID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageStore) Create(ctx context.Context, websiteID int64, req *models.PageRequest) (*models.Page, error) {
	args := m.Called(ctx, websiteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageStore) Update(ctx context.Context, websiteID, pageID int64, req *models.PageRequest) (*models.Page, error) {
	args := m.Called(ctx, websiteID, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page), args.Error(1)
}

func (m *MockPageStore) Delete(ctx context.Context, websiteID, pageID int64) error {
	return m.Called(ctx, websiteID, pageID).Error(0)
}

type MockMenuStore struct {
	mock.Mock
}

func (m *MockMenuStore) Get(ctx context.Context, websiteID int64, t models.MenuType) (*models.Menu, error) {
	args := m.Called(ctx, websiteID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Menu), args.Error(1)
}

func (m *MockMenuStore) Upsert(ctx context.Context, websiteID int64, t models.MenuType, content string) (*models.Menu, error) {
	args := m.Called(ctx, websiteID, t, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Menu), args.Error(1)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Archive(ctx context.Context, websiteID int64, ownerID string) (*export.ArchiveFile, error) {
	args := m.Called(ctx, websiteID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.ArchiveFile), args.Error(1)
}

func (m *MockExporter) Publish(ctx context.Context, websiteID int64, ownerID string, req models.PublishRequest) (*export.PublishResult, error) {
	args := m.Called(ctx, websiteID, ownerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.PublishResult), args.Error(1)
}

type MockRepoLister struct {
	mock.Mock
}

func (m *MockRepoLister) ListRepos(ctx context.Context) ([]github.Repo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Repo), args.Error(1)
}

// testEnv wires every handler to mocks behind the real route table.
type testEnv struct {
	websites  *MockWebsiteStore
	authors   *MockAuthorStore
	pages     *MockPageStore
	menus     *MockMenuStore
	exporter  *MockExporter
	repos     *MockRepoLister
	mediaRoot string
	router    *gin.Engine
	token     string
	noGitHub  bool
	requests  *recordingLogger
}

// withoutGitHub leaves the export handler with no repository lister.
func withoutGitHub(e *testEnv) { e.noGitHub = true }

// withRequestLogs installs the request-ID middleware logging into rec.
func withRequestLogs(rec *recordingLogger) func(*testEnv) {
	return func(e *testEnv) { e.requests = rec }
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

// recordingLogger keeps every entry together with the fields bound via With.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	bound   []logger.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (r *recordingLogger) record(level, msg string, fields []logger.Field) {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range append(append([]logger.Field{}, r.bound...), fields...) {
		f.AddTo(enc)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, logEntry{level: level, msg: msg, fields: enc.Fields})
}

func (r *recordingLogger) Debug(msg string, f ...logger.Field) { r.record("debug", msg, f) }
func (r *recordingLogger) Info(msg string, f ...logger.Field)  { r.record("info", msg, f) }
func (r *recordingLogger) Warn(msg string, f ...logger.Field)  { r.record("warn", msg, f) }
func (r *recordingLogger) Error(msg string, f ...logger.Field) { r.record("error", msg, f) }
func (r *recordingLogger) Fatal(msg string, f ...logger.Field) { r.record("fatal", msg, f) }
func (r *recordingLogger) Sync() error                         { return nil }

func (r *recordingLogger) With(f ...logger.Field) logger.Logger {
	return &recordingLogger{mu: r.mu, entries: r.entries, bound: append(append([]logger.Field{}, r.bound...), f...)}
}

func (r *recordingLogger) find(msg string) (logEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range *r.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func newTestEnv(t *testing.T, opts ...func(*testEnv)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &testEnv{
		websites:  &MockWebsiteStore{},
		authors:   &MockAuthorStore{},
		pages:     &MockPageStore{},
		menus:     &MockMenuStore{},
		exporter:  &MockExporter{},
		repos:     &MockRepoLister{},
		mediaRoot: t.TempDir(),
	}
	for _, opt := range opts {
		opt(e)
	}
	log := logger.NewNop()

	var repos handlers.RepoLister = e.repos
	if e.noGitHub {
		repos = nil
	}

	e.router = gin.New()
	if e.requests != nil {
		e.router.Use(infragin.RequestIDLoggerMiddleware(e.requests))
	}
	api.SetupRoutes(e.router, api.Options{JWTSecret: testSecret}, api.Handlers{
		Websites: handlers.NewWebsiteHandler(e.websites, e.authors,
			handlers.UploadConfig{MediaRoot: e.mediaRoot, MaxBytes: 1 << 20}, log),
		Pages:  handlers.NewPageHandler(e.websites, e.pages, log),
		Menus:  handlers.NewMenuHandler(e.websites, e.menus, e.pages, log),
		Export: handlers.NewExportHandler(e.websites, e.exporter, repos, log),
	})

	token, err := jwt.Sign(testSecret, &jwt.Claims{
		Name:             "Ann",
		RegisteredClaims: gojwt.RegisteredClaims{Subject: testOwner},
	})
	require.NoError(t, err)
	e.token = token

	t.Cleanup(func() {
		e.websites.AssertExpectations(t)
		e.authors.AssertExpectations(t)
		e.pages.AssertExpectations(t)
		e.menus.AssertExpectations(t)
		e.exporter.AssertExpectations(t)
		e.repos.AssertExpectations(t)
	})
	return e
}

// owns makes website id visible to the test owner.
func (e *testEnv) owns(id int64) *models.Website {
	w := models.NewWebsite(testOwner, "Ann", "Acme Plumbing", "acme-plumbing")
	w.ID = id
	e.websites.On("Get", mock.Anything, id, testOwner).Return(w, nil)
	return w
}

func (e *testEnv) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	return e.do(method, path, r, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
