package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/aqasim81/manifest-migrate/internal/config"
	"github.com/aqasim81/manifest-migrate/internal/logger"
)

const version = "0.2.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the migrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Version: version,
	Short:   "Manifest-driven PostgreSQL schema migration runner",
	Long: `migrate applies or reverts SQL migration units in the order declared by a
manifest file. Each unit is a directory holding up.sql and down.sql; applied
units are tracked in the _migrations table so re-runs are idempotent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultConfigPath, "path to configuration file")
	rootCmd.PersistentFlags().StringP("database-url", "d", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("db", "", "alias for --database-url")
	rootCmd.PersistentFlags().StringP("migrations-dir", "m", "", "root directory with one subdirectory per migration")
	rootCmd.PersistentFlags().StringP("manifest", "f", "", "path to the manifest file")
	rootCmd.PersistentFlags().Bool("verbose", false, "print each statement as it runs")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("db")
	}

	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("migrations-dir") {
		cfg.MigrationsDir, _ = cmd.Flags().GetString("migrations-dir")
	}

	if cmd.Flags().Changed("manifest") {
		cfg.Manifest, _ = cmd.Flags().GetString("manifest")
	}
}

// newLogger builds the operator logger from the --verbose and --no-color flags.
// Commands built in tests may not carry the flags; both default to off.
func newLogger(cmd *cobra.Command) *logger.ColoredLogger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	return logger.New(cmd.OutOrStdout(), logger.ColorsEnabled(noColor), verbose)
}

// currentConfig returns AppConfig, or defaults when PersistentPreRunE did not run.
func currentConfig() *config.Config {
	if AppConfig == nil {
		return config.New()
	}

	return AppConfig
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
