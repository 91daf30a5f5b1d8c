package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aqasim81/manifest-migrate/internal/database"
)

// Executor runs the statements of one script inside a caller-owned transaction.
// It never commits or rolls back; a returned error means the caller must
// abandon the transaction.
type Executor struct {
	splitter         Splitter
	lockTimeout      time.Duration
	statementTimeout time.Duration
	onStatement      func(index int, stmt string)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSplitter sets the statement splitting strategy.
func WithSplitter(s Splitter) Option {
	return func(e *Executor) { e.splitter = s }
}

// WithLockTimeout sets the per-transaction lock_timeout. Zero leaves the server default.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout. Zero leaves the server default.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithStatementCallback sets a function called before each statement runs.
func WithStatementCallback(fn func(index int, stmt string)) Option {
	return func(e *Executor) { e.onStatement = fn }
}

// New creates an Executor. Without WithSplitter the naive splitter is used.
func New(opts ...Option) *Executor {
	e := &Executor{}

	for _, opt := range opts {
		opt(e)
	}

	if e.splitter == nil {
		e.splitter = SplitterFunc(NaiveSplit)
	}

	return e
}

// Exec splits sql and executes each statement in order on tx, stopping at the
// first failure. It returns the number of statements that succeeded.
func (e *Executor) Exec(ctx context.Context, tx database.DBTX, sql string) (int, error) {
	stmts, err := e.splitter.Split(sql)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSplitFailed, err)
	}

	if err := e.applyTimeouts(ctx, tx); err != nil {
		return 0, err
	}

	for i, stmt := range stmts {
		if e.onStatement != nil {
			e.onStatement(i, stmt)
		}

		if _, err := tx.Exec(ctx, stmt); err != nil {
			return i, fmt.Errorf("%w: statement %d of %d: %w", ErrStatementFailed, i+1, len(stmts), err)
		}
	}

	return len(stmts), nil
}

func (e *Executor) applyTimeouts(ctx context.Context, tx database.DBTX) error {
	if e.lockTimeout > 0 {
		if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
			return err
		}
	}

	if e.statementTimeout > 0 {
		if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
			return err
		}
	}

	return nil
}
