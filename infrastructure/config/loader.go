// Package config loads service configuration from a YAML file, optional .env
// files and `env:"NAME"` struct tag overrides, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yml"

// GetConfigPath returns CONFIG_PATH when set, otherwise fallback (or config.yml).
func GetConfigPath(fallback string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if fallback == "" {
		return defaultConfigPath
	}
	return fallback
}

// Load decodes the YAML file at path into a fresh T and applies env overrides.
// A missing file is not an error: the zero value plus env is returned.
func Load[T any](path string) (*T, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg T
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if unmarshalErr := yaml.Unmarshal(raw, &cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, unmarshalErr)
		}
	}

	if err = overrideFromEnv(reflect.ValueOf(&cfg).Elem()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults is Load followed by setDefaults. Env values are applied
// once more afterwards so they always win over defaults.
func LoadWithDefaults[T any](path string, setDefaults func(*T)) (*T, error) {
	cfg, err := Load[T](path)
	if err != nil {
		return nil, err
	}
	if setDefaults == nil {
		return cfg, nil
	}
	setDefaults(cfg)
	if err = overrideFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv honours ENV_FILE, else .env.local then .env. Existing process
// variables are never replaced.
func loadDotEnv() error {
	files := []string{".env.local", ".env"}
	if explicit := os.Getenv("ENV_FILE"); explicit != "" {
		files = []string{explicit}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func overrideFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		field := v.Field(i)
		meta := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && meta.Type != reflect.TypeFor[time.Time]() {
			if err := overrideFromEnv(field); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			return &ValidationError{Field: name, Message: err.Error()}
		}
	}
	return nil
}

func assign(field reflect.Value, raw string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes", "on":
			field.SetBool(true)
		default:
			field.SetBool(false)
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		field.SetUint(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
