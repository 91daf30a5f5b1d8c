package tracker

// TableName is the reserved bookkeeping table.
const TableName = "_migrations"

// createSchemaSQL is the DDL for the tracking table.
const createSchemaSQL = `CREATE TABLE IF NOT EXISTS _migrations (
    name       VARCHAR PRIMARY KEY,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
)`

const (
	existsSQL = `SELECT EXISTS (SELECT 1 FROM _migrations WHERE name = $1)`
	insertSQL = `INSERT INTO _migrations (name) VALUES ($1)`
	deleteSQL = `DELETE FROM _migrations WHERE name = $1`
	listSQL   = `SELECT name, created_at FROM _migrations ORDER BY created_at, name`
)
