package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/manifest-migrate/internal/config"
	"github.com/aqasim81/manifest-migrate/internal/database"
	"github.com/aqasim81/manifest-migrate/internal/manifest"
	"github.com/aqasim81/manifest-migrate/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show applied and pending units",
	Long: `Status lists the units recorded in the tracking table, then marks each unit of
the manifest's apply section as applied or pending. It never creates the
tracking table.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStatus(cmd, currentConfig())
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for command registration
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, cfg *config.Config) error {
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	ctx := commandContext(cmd)

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := tracker.New(pool).List(ctx)
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), applied, m.Apply)

	return nil
}

// printStatus writes the tracking table contents followed by the manifest's
// apply order with each unit marked applied or pending.
func printStatus(w io.Writer, applied []tracker.AppliedUnit, apply []string) {
	recorded := make(map[string]bool, len(applied))

	fmt.Fprintf(w, "Applied migrations (%s):\n", tracker.TableName)

	if len(applied) == 0 {
		fmt.Fprintln(w, "  (none)")
	}

	for _, u := range applied {
		recorded[u.Name] = true
		fmt.Fprintf(w, "  %-40s %s\n", u.Name, u.CreatedAt.Format(time.DateTime))
	}

	pending := 0

	fmt.Fprintln(w, "\nManifest apply order:")

	for _, name := range apply {
		mark := "[x]"
		if !recorded[name] {
			mark = "[ ]"
			pending++
		}

		fmt.Fprintf(w, "  %s %s\n", mark, name)
	}

	fmt.Fprintf(w, "\n%d applied, %d pending\n", len(apply)-pending, pending)
}
