package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "querybridge",
	Short: "QueryBridge: shell-style queries against document and relational stores",
	Long: `QueryBridge accepts document-store queries in shell syntax
(db.users.find({age: {$gt: 21}})) or as structured documents and
pipelines, translates them into driver calls and runs them against
named MongoDB, PostgreSQL, Oracle or SQLite connections.

Connections are defined in ~/.querybridge/querybridge.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initEnv(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.querybridge/querybridge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
}

// initEnv loads .env files and lets QUERYBRIDGE_* variables stand in for
// flags the user did not set.
func initEnv(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("querybridge")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	cfgFile = viper.GetString("config")
	logLevel = viper.GetString("log-level")
	return nil
}

// session holds what every store-facing command needs.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *backend.Registry
}

func openSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)
	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: backend.NewRegistry(cfg, backend.WithLogger(logger)),
	}, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.Setup(level, cfg.Logging.Directory)
	if err != nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(level)}))
		logger.Warn("file logging disabled", "error", err)
		return logger
	}
	if n, err := logging.Prune(cfg.Logging.Directory, cfg.Logging.RetentionDays); err != nil {
		logger.Warn("pruning old logs", "error", err)
	} else if n > 0 {
		logger.Debug("pruned old logs", "removed", n)
	}
	return logger
}

// backend resolves name, falling back to the default connection.
func (s *session) backend(ctx context.Context, name string) (backend.Backend, error) {
	if name == "" {
		name = s.registry.Default()
	}
	return s.registry.Get(ctx, name)
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.registry.Close(ctx); err != nil {
		s.logger.Warn("closing connections", "error", err)
	}
}
