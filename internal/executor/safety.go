package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aqasim81/manifest-migrate/internal/database"
)

// SetLockTimeout sets lock_timeout for the rest of the current transaction.
// The unit fails fast instead of queueing behind a long-held lock.
func SetLockTimeout(ctx context.Context, tx database.DBTX, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())

	_, err := tx.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("setting lock_timeout: %w", err)
	}

	return nil
}

// SetStatementTimeout sets statement_timeout for the rest of the current transaction.
func SetStatementTimeout(ctx context.Context, tx database.DBTX, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())

	_, err := tx.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}

	return nil
}
