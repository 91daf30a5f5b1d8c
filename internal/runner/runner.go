package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/aqasim81/manifest-migrate/internal/database"
	"github.com/aqasim81/manifest-migrate/internal/migration"
)

// StateTracker abstracts the tracking table for testability.
type StateTracker interface {
	EnsureTable(ctx context.Context) error
	Exists(ctx context.Context, db database.DBTX, name string) (bool, error)
	Record(ctx context.Context, db database.DBTX, name string) error
	Unrecord(ctx context.Context, db database.DBTX, name string) error
}

// StatementExecutor runs a script's statements inside a transaction.
type StatementExecutor interface {
	Exec(ctx context.Context, tx database.DBTX, sql string) (int, error)
}

// loadFunc reads a unit's script for a direction.
type loadFunc func(root, name string, d migration.Direction) (*migration.Unit, error)

// txFunc runs fn inside a transaction, committing only if fn succeeds.
type txFunc func(ctx context.Context, fn func(tx database.DBTX) error) error

// Runner applies or reverts units in manifest order, one transaction per unit.
// A failing unit is reported and the run moves on to the next one.
type Runner struct {
	tracker       StateTracker
	stmts         StatementExecutor
	migrationsDir string
	onProgress    func(Outcome)
	load          loadFunc
	inTx          txFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithMigrationsDir sets the root directory holding one subdirectory per unit.
func WithMigrationsDir(dir string) Option {
	return func(r *Runner) { r.migrationsDir = dir }
}

// WithProgressCallback sets a function called when a unit starts and when it finishes.
func WithProgressCallback(fn func(Outcome)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// New creates a Runner that opens unit transactions on db.
func New(db database.Beginner, t StateTracker, stmts StatementExecutor, opts ...Option) *Runner {
	r := &Runner{
		tracker:       t,
		stmts:         stmts,
		migrationsDir: migration.DefaultDir,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.load == nil {
		r.load = migration.Load
	}

	if r.inTx == nil {
		r.inTx = func(ctx context.Context, fn func(tx database.DBTX) error) error {
			return database.InTx(ctx, db, fn)
		}
	}

	return r
}

// Apply runs the up script of each unit not yet applied, in the given order.
func (r *Runner) Apply(ctx context.Context, units []string) (*Report, error) {
	return r.run(ctx, migration.Up, units)
}

// Revert runs the down script of each applied unit, in the given order.
// The order is used as given; it is not derived from the apply order.
func (r *Runner) Revert(ctx context.Context, units []string) (*Report, error) {
	return r.run(ctx, migration.Down, units)
}

// run ensures the tracking table, then processes every unit. The returned
// error is non-nil only when the table cannot be created or ctx is done;
// per-unit failures live in the report.
func (r *Runner) run(ctx context.Context, d migration.Direction, units []string) (*Report, error) {
	if err := r.tracker.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring tracking table: %w", err)
	}

	report := &Report{
		Direction: d,
		Outcomes:  make([]Outcome, 0, len(units)),
	}

	for _, name := range units {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run interrupted before %s: %w", name, err)
		}

		report.Outcomes = append(report.Outcomes, r.runOne(ctx, d, name))
	}

	return report, nil
}

// runOne loads, checks, executes and records a single unit.
func (r *Runner) runOne(ctx context.Context, d migration.Direction, name string) Outcome {
	r.fireProgress(Outcome{Unit: name, Direction: d, Status: StatusStarting})

	start := time.Now()
	out := Outcome{Unit: name, Direction: d}

	unit, err := r.load(r.migrationsDir, name, d)
	if err == nil {
		err = r.inTx(ctx, func(tx database.DBTX) error {
			n, txErr := r.execUnit(ctx, tx, unit)
			out.Statements = n

			return txErr
		})
	}

	out.Duration = time.Since(start)
	out.Status = classify(d, err)
	out.Err = err

	if out.Status == StatusFailed {
		// Statements ran inside an abandoned transaction: none of them persisted.
		out.Statements = 0
	}

	r.fireProgress(out)

	return out
}

// execUnit runs inside the unit's transaction. Any returned error abandons it.
func (r *Runner) execUnit(ctx context.Context, tx database.DBTX, unit *migration.Unit) (int, error) {
	applied, err := r.tracker.Exists(ctx, tx, unit.Name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStateCheck, err)
	}

	switch {
	case unit.Direction == migration.Up && applied:
		return 0, fmt.Errorf("migration entry for %s: %w", unit.Name, ErrAlreadyApplied)
	case unit.Direction == migration.Down && !applied:
		return 0, fmt.Errorf("migration %s: %w", unit.Name, ErrNotApplied)
	}

	n, err := r.stmts.Exec(ctx, tx, unit.SQL)
	if err != nil {
		return n, fmt.Errorf("executing %s of %s: %w", unit.Direction.Script(), unit.Name, err)
	}

	if unit.Direction == migration.Down {
		err = r.tracker.Unrecord(ctx, tx, unit.Name)
	} else {
		err = r.tracker.Record(ctx, tx, unit.Name)
	}

	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrStateRecord, err)
	}

	return n, nil
}

func (r *Runner) fireProgress(o Outcome) {
	if r.onProgress != nil {
		r.onProgress(o)
	}
}
