package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	infraconfig "github.com/jonesrussell/site-builder/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	SetDefaults(cfg)

	assert.Equal(t, defaultServiceName, cfg.Service.Name)
	assert.Equal(t, defaultServicePort, cfg.Service.Port)
	assert.Equal(t, defaultDBName, cfg.Database.Database)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 60*time.Second, cfg.GitHub.PushTimeout)
	assert.Equal(t, 5*time.Second, cfg.Export.MediaTimeout)
	assert.Equal(t, 10*time.Second, cfg.Export.ImageTimeout)
	assert.Equal(t, filepath.Join("media", "websites", "title-background.jpg"), cfg.Media.DefaultHeading)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Service: ServiceConfig{Port: 9000},
		Media:   MediaConfig{Root: "/srv/media"},
	}
	SetDefaults(cfg)

	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, "/srv/media/websites/title-background.jpg", cfg.Media.DefaultHeading)
}

func validConfig() *Config {
	cfg := &Config{Auth: AuthConfig{JWTSecret: "s3cret"}}
	SetDefaults(cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Service.Port = 70000 }, wantField: "service.port"},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantField: "auth.jwt_secret"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantField: "logging.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantField: "logging.format"},
		{
			name:      "redis enabled without address",
			mutate:    func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" },
			wantField: "redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var vErr *infraconfig.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestDatabaseConfig_DSNAndURL(t *testing.T) {
	t.Parallel()

	db := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", Database: "site_builder", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=app password=p@ss dbname=site_builder sslmode=disable", db.DSN())
	assert.Equal(t, "postgres://app:p%40ss@db:5432/site_builder?sslmode=disable", db.URL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  port: 8100\nauth:\n  jwt_secret: from-file\n"), 0o600))
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("WEB3_FORM_API_KEY", "web3-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Service.Port)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, "web3-key", cfg.Export.Web3FormsKey)
	require.NoError(t, cfg.Validate())
}
