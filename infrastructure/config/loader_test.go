package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonesrussell/site-builder/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Server struct {
		Port    int           `env:"SAMPLE_PORT"    yaml:"port"`
		Timeout time.Duration `env:"SAMPLE_TIMEOUT" yaml:"timeout"`
	} `yaml:"server"`
	Name    string   `env:"SAMPLE_NAME"    yaml:"name"`
	Debug   bool     `env:"SAMPLE_DEBUG"   yaml:"debug"`
	Origins []string `env:"SAMPLE_ORIGINS" yaml:"origins"`
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, "name: from-yaml\nserver:\n  port: 8080\n")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SAMPLE_PORT", "9090")
	t.Setenv("SAMPLE_TIMEOUT", "3s")
	t.Setenv("SAMPLE_DEBUG", "yes")
	t.Setenv("SAMPLE_ORIGINS", "a.test, b.test,")

	cfg, err := config.Load[sample](path)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"a.test", "b.test"}, cfg.Origins)
}

func TestLoadWithDefaults_EnvBeatsDefaults(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 0\n")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SAMPLE_NAME", "env-name")

	cfg, err := config.LoadWithDefaults(path, func(c *sample) {
		c.Name = "default-name"
		if c.Server.Port == 0 {
			c.Server.Port = 8070
		}
	})
	require.NoError(t, err)

	assert.Equal(t, "env-name", cfg.Name)
	assert.Equal(t, 8070, cfg.Server.Port)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	path := writeYAML(t, "name: x\n")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SAMPLE_PORT", "not-a-number")

	_, err := config.Load[sample](path)

	var vErr *config.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "SAMPLE_PORT", vErr.Field)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.GetConfigPath(""))

	t.Setenv("CONFIG_PATH", "/etc/site-builder.yml")
	assert.Equal(t, "/etc/site-builder.yml", config.GetConfigPath("config.yml"))
}

func TestValidatePort(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.ValidatePort("port", 1))
	require.NoError(t, config.ValidatePort("port", 65535))
	require.Error(t, config.ValidatePort("port", 0))
	require.Error(t, config.ValidatePort("port", 65536))
}
