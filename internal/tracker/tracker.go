package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqasim81/manifest-migrate/internal/database"
)

// PostgreSQL SQLSTATE codes inspected by the tracker.
const (
	uniqueViolation = "23505"
	undefinedTable  = "42P01"
)

// AppliedUnit is one row of the tracking table.
type AppliedUnit struct {
	Name      string
	CreatedAt time.Time
}

// Querier runs multi-row queries. Satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	database.DBTX
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Tracker manages the _migrations table. Membership checks and updates run on
// the caller's transaction so they commit together with the unit's script.
type Tracker struct {
	db Querier
}

// New creates a Tracker. db is used for table creation and listing only.
func New(db Querier) *Tracker {
	return &Tracker{db: db}
}

// EnsureTable creates the tracking table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	_, err := t.db.Exec(ctx, createSchemaSQL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// Exists reports whether name is currently recorded as applied.
func (t *Tracker) Exists(ctx context.Context, db database.DBTX, name string) (bool, error) {
	var exists bool

	if err := db.QueryRow(ctx, existsSQL, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking if migration %s exists: %w", name, err)
	}

	return exists, nil
}

// Record inserts the applied-state row for name. It fails if the row exists.
func (t *Tracker) Record(ctx context.Context, db database.DBTX, name string) error {
	if _, err := db.Exec(ctx, insertSQL, name); err != nil {
		if hasCode(err, uniqueViolation) {
			return fmt.Errorf("migration %s: %w", name, ErrAlreadyRecorded)
		}

		return fmt.Errorf("recording migration %s: %w", name, err)
	}

	return nil
}

// Unrecord deletes the applied-state row for name. A missing row is not an error.
func (t *Tracker) Unrecord(ctx context.Context, db database.DBTX, name string) error {
	if _, err := db.Exec(ctx, deleteSQL, name); err != nil {
		return fmt.Errorf("removing migration %s: %w", name, err)
	}

	return nil
}

// List returns all applied units, oldest first. A missing tracking table
// means nothing has been applied yet; List does not create it.
func (t *Tracker) List(ctx context.Context) ([]AppliedUnit, error) {
	rows, err := t.db.Query(ctx, listSQL)
	if hasCode(err, undefinedTable) {
		return []AppliedUnit{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedUnit, error) {
		var u AppliedUnit
		if scanErr := row.Scan(&u.Name, &u.CreatedAt); scanErr != nil {
			return AppliedUnit{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return u, nil
	})
	if hasCode(err, undefinedTable) {
		return []AppliedUnit{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == code
}
