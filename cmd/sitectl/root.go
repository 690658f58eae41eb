package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	infraconfig "github.com/jonesrussell/site-builder/infrastructure/config"
	infralogger "github.com/jonesrussell/site-builder/infrastructure/logger"
	"github.com/jonesrussell/site-builder/internal/bootstrap"
	"github.com/jonesrussell/site-builder/internal/config"
)

var version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           "sitectl",
		Short:         "Site builder maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitectl version %s\n", version)
		},
	})
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newFixSlugsCommand())
}

// loadConfig reads the service config through viper so flags and
// SITE_BUILDER_* variables can override file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SITE_BUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file leaves defaults and environment.
	if _, statErr := os.Stat(path); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", statErr)
	}
	if err := v.BindPFlag("service.debug", cmd.Root().PersistentFlags().Lookup("debug")); err != nil {
		return nil, fmt.Errorf("bind debug flag: %w", err)
	}

	cfg := &config.Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}
	if err = decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.SetDefaults(cfg)
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// env is what every subcommand needs.
type env struct {
	cfg *config.Config
	db  *sqlx.DB
	log infralogger.Logger
}

func (e *env) Close() {
	_ = e.db.Close()
	_ = e.log.Sync()
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Service.Debug {
		cfg.Logging.Level = "warn"
	}
	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, err
	}
	db, err := bootstrap.SetupDatabase(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, log: log}, nil
}
