package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/manifest-migrate/internal/config"
	"github.com/aqasim81/manifest-migrate/internal/database"
	"github.com/aqasim81/manifest-migrate/internal/executor"
	"github.com/aqasim81/manifest-migrate/internal/logger"
	"github.com/aqasim81/manifest-migrate/internal/manifest"
	"github.com/aqasim81/manifest-migrate/internal/migration"
	"github.com/aqasim81/manifest-migrate/internal/runner"
	"github.com/aqasim81/manifest-migrate/internal/tracker"
)

var errDatabaseURLRequired = errors.New("database URL required: use --database-url flag, MIGRATE_DATABASE_URL env var, or database_url in config file")

var runCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "run",
	Aliases: []string{"apply"},
	Short:   "Apply the units listed in the manifest's apply section",
	Long: `Apply runs each unit's up.sql in manifest order, one transaction per unit.
Units already recorded in the tracking table are skipped. A failing unit is
reported and the run continues with the next one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrations(cmd, currentConfig(), migration.Up)
	},
}

var revertCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "revert",
	Aliases: []string{"rollback"},
	Short:   "Revert the units listed in the manifest's revert section",
	Long: `Revert runs each unit's down.sql in the order of the manifest's revert section.
Units not recorded in the tracking table are skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrations(cmd, currentConfig(), migration.Down)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	for _, cmd := range []*cobra.Command{runCmd, revertCmd} {
		cmd.Flags().String("splitter", "", "statement splitter: naive or postgres")
		cmd.Flags().Duration("lock-timeout", 0, "per-unit lock_timeout (0 = server default)")
		cmd.Flags().Duration("statement-timeout", 0, "per-unit statement_timeout (0 = server default)")
		rootCmd.AddCommand(cmd)
	}
}

// runMigrations is shared by run and revert. Only fatal errors are returned;
// per-unit failures are printed and counted in the summary.
func runMigrations(cmd *cobra.Command, cfg *config.Config, d migration.Direction) error {
	mergeRunFlags(cmd, cfg)

	log := newLogger(cmd)

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}

	units := m.Units(d)
	log.Infof("%s migrations: [%s]", d, strings.Join(units, ", "))

	for _, w := range m.Validate() {
		log.Warnf("%s", w)
	}

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	splitter, err := executor.NewSplitter(cfg.Splitter)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	log.Debugf("connecting to %s", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	log.Successf("connected to the database")

	stmts := executor.New(
		executor.WithSplitter(splitter),
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		executor.WithStatementCallback(func(i int, stmt string) {
			log.Debugf("  [%d] %s", i+1, stmt)
		}),
	)

	r := runner.New(pool, tracker.New(pool), stmts,
		runner.WithMigrationsDir(cfg.MigrationsDir),
		runner.WithProgressCallback(progressPrinter(log)),
	)

	var report *runner.Report
	if d == migration.Down {
		report, err = r.Revert(ctx, units)
	} else {
		report, err = r.Apply(ctx, units)
	}

	if report != nil {
		printSummary(log, report)
	}

	return err
}

// mergeRunFlags overrides config with the run/revert flags that were set.
func mergeRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("splitter") {
		cfg.Splitter, _ = cmd.Flags().GetString("splitter")
	}

	if cmd.Flags().Changed("lock-timeout") {
		cfg.LockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		cfg.StatementTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}
}

// progressPrinter reports each unit as the runner reaches it.
func progressPrinter(log logger.Logger) func(runner.Outcome) {
	return func(o runner.Outcome) {
		switch o.Status {
		case runner.StatusStarting:
			log.Debugf("checking if the migration for %s exists", o.Unit)
		case runner.StatusApplied:
			log.Successf("up migration done for %s (%d statements, %s)",
				o.Unit, o.Statements, o.Duration.Round(time.Millisecond))
		case runner.StatusReverted:
			log.Successf("down migration done for %s (%d statements, %s)",
				o.Unit, o.Statements, o.Duration.Round(time.Millisecond))
		case runner.StatusSkipped:
			log.Warnf("skipping %s: %v", o.Unit, o.Err)
		case runner.StatusFailed:
			log.Errorf("could not %s %s: %v", o.Direction, o.Unit, o.Err)
		}
	}
}

func printSummary(log logger.Logger, report *runner.Report) {
	s := report.Summary()

	verb := "applied"
	if report.Direction == migration.Down {
		verb = "reverted"
	}

	line := fmt.Sprintf("%s complete: %d %s, %d skipped, %d failed",
		capitalize(report.Direction.String()), s.Succeeded, verb, s.Skipped, s.Failed)

	if s.Failed > 0 {
		log.Errorf("%s", line)

		return
	}

	log.Successf("%s", line)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
