package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	infraconfig "github.com/jonesrussell/site-builder/infrastructure/config"
	infraredis "github.com/jonesrussell/site-builder/infrastructure/redis"
)

// Default configuration values.
const (
	defaultServiceName    = "site-builder"
	defaultServicePort    = 8095
	defaultVersion        = "0.1.0"
	defaultLoggingLevel   = "info"
	defaultLoggingFmt     = "json"
	defaultDBHost         = "localhost"
	defaultDBPort         = 5432
	defaultDBName         = "site_builder"
	defaultDBUser         = "postgres"
	defaultDBSSLMode      = "disable"
	defaultRedisAddress   = "localhost:6379"
	defaultGitHubAPIURL   = "https://api.github.com"
	defaultGitHubTimeout  = 10 * time.Second
	defaultPushTimeout    = 60 * time.Second
	defaultGitHubRate     = 5.0
	defaultMediaTimeout   = 5 * time.Second
	defaultImageTimeout   = 10 * time.Second
	defaultBundleListen   = ":8000"
	defaultMediaRoot      = "media"
	defaultMediaURL       = "http://localhost:8095/media/"
	defaultMaxUploadBytes = 10 << 20
)

// Config holds the application configuration.
type Config struct {
	Service  ServiceConfig     `mapstructure:"service"  yaml:"service"`
	Database DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Redis    infraredis.Config `mapstructure:"redis"    yaml:"redis"`
	Auth     AuthConfig        `mapstructure:"auth"     yaml:"auth"`
	GitHub   GitHubConfig      `mapstructure:"github"   yaml:"github"`
	Export   ExportConfig      `mapstructure:"export"   yaml:"export"`
	Media    MediaConfig       `mapstructure:"media"    yaml:"media"`
	Logging  LoggingConfig     `mapstructure:"logging"  yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string   `mapstructure:"name"         yaml:"name"`
	Version     string   `mapstructure:"version"      yaml:"version"`
	Port        int      `env:"SITE_BUILDER_PORT"     mapstructure:"port"         yaml:"port"`
	Debug       bool     `env:"APP_DEBUG"             mapstructure:"debug"        yaml:"debug"`
	CORSOrigins []string `env:"SITE_BUILDER_CORS"     mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_SITE_BUILDER_HOST"     mapstructure:"host"     yaml:"host"`
	Port     int    `env:"POSTGRES_SITE_BUILDER_PORT"     mapstructure:"port"     yaml:"port"`
	User     string `env:"POSTGRES_SITE_BUILDER_USER"     mapstructure:"user"     yaml:"user"`
	Password string `env:"POSTGRES_SITE_BUILDER_PASSWORD" mapstructure:"password" yaml:"password"` //nolint:gosec // connection config
	Database string `env:"POSTGRES_SITE_BUILDER_DB"       mapstructure:"database" yaml:"database"`
	SSLMode  string `env:"POSTGRES_SITE_BUILDER_SSLMODE"  mapstructure:"sslmode"  yaml:"sslmode"`
}

// DSN returns the lib/pq keyword connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL returns the postgres:// form used by golang-migrate.
func (d *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// AuthConfig configures bearer-token auth for /api/v1.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" mapstructure:"jwt_secret" yaml:"jwt_secret"` //nolint:gosec // secret reference
}

// GitHubConfig configures repository publishing.
type GitHubConfig struct {
	Token             string        `env:"GITHUB_TOKEN" mapstructure:"token"               yaml:"token"` //nolint:gosec // secret reference
	APIURL            string        `mapstructure:"api_url"             yaml:"api_url"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	PushTimeout       time.Duration `mapstructure:"push_timeout"        yaml:"push_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// ExportConfig configures the export pipeline.
type ExportConfig struct {
	MediaTimeout time.Duration `mapstructure:"media_timeout" yaml:"media_timeout"`
	ImageTimeout time.Duration `mapstructure:"image_timeout" yaml:"image_timeout"`
	// WorkDir is where per-export temp directories are created; empty uses os.TempDir.
	WorkDir string `env:"EXPORT_WORK_DIR" mapstructure:"work_dir" yaml:"work_dir"`
	// AssetsDir optionally shadows the embedded templates and static files.
	AssetsDir    string `mapstructure:"assets_dir"    yaml:"assets_dir"`
	ListenAddr   string `mapstructure:"listen_addr"   yaml:"listen_addr"`
	Web3FormsKey string `env:"WEB3_FORM_API_KEY" mapstructure:"web3forms_key" yaml:"web3forms_key"`
}

// MediaConfig locates stored media.
type MediaConfig struct {
	Root           string `env:"MEDIA_ROOT"     mapstructure:"root"             yaml:"root"`
	BaseURL        string `env:"MEDIA_BASE_URL" mapstructure:"base_url"         yaml:"base_url"`
	DefaultHeading string `mapstructure:"default_heading"  yaml:"default_heading"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  mapstructure:"level"  yaml:"level"`
	Format string `env:"LOG_FORMAT" mapstructure:"format" yaml:"format"`
}

// Load reads path, applies defaults and env overrides.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, SetDefaults)
}

// SetDefaults fills every unset field.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	setGitHubDefaults(&cfg.GitHub)
	setExportDefaults(&cfg.Export)
	setMediaDefaults(&cfg.Media)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLoggingFmt
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setGitHubDefaults(gh *GitHubConfig) {
	if gh.APIURL == "" {
		gh.APIURL = defaultGitHubAPIURL
	}
	if gh.Timeout == 0 {
		gh.Timeout = defaultGitHubTimeout
	}
	if gh.PushTimeout == 0 {
		gh.PushTimeout = defaultPushTimeout
	}
	if gh.RequestsPerSecond == 0 {
		gh.RequestsPerSecond = defaultGitHubRate
	}
}

func setExportDefaults(ex *ExportConfig) {
	if ex.MediaTimeout == 0 {
		ex.MediaTimeout = defaultMediaTimeout
	}
	if ex.ImageTimeout == 0 {
		ex.ImageTimeout = defaultImageTimeout
	}
	if ex.ListenAddr == "" {
		ex.ListenAddr = defaultBundleListen
	}
}

func setMediaDefaults(m *MediaConfig) {
	if m.Root == "" {
		m.Root = defaultMediaRoot
	}
	if m.BaseURL == "" {
		m.BaseURL = defaultMediaURL
	}
	if m.DefaultHeading == "" {
		m.DefaultHeading = filepath.Join(m.Root, "websites", "title-background.jpg")
	}
	if m.MaxUploadBytes == 0 {
		m.MaxUploadBytes = defaultMaxUploadBytes
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidatePort("database.port", c.Database.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("auth.jwt_secret", c.Auth.JWTSecret); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("media.root", c.Media.Root); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel("logging.level", c.Logging.Level); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogFormat("logging.format", c.Logging.Format); err != nil {
		return err
	}
	if c.Redis.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	return nil
}
