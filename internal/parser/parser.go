package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and the SQL the locations refer to.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
// Statement locations are offsets into the trimmed input held in SQL.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: trimmed}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   trimmed,
	}, nil
}

// Split returns the text of each top-level statement in sql, in order, using
// the PostgreSQL grammar to find boundaries. Semicolons inside string
// literals, dollar-quoted bodies and comments do not split.
func Split(sql string) ([]string, error) {
	result, err := Parse(sql)
	if err != nil {
		return nil, err
	}

	stmts := make([]string, 0, len(result.Stmts))

	for i := range result.Stmts {
		if text := StmtText(result, i); text != "" {
			stmts = append(stmts, text)
		}
	}

	return stmts, nil
}

// StmtText extracts the trimmed SQL text of statement idx. A zero StmtLen
// means the statement runs to the end of the input.
func StmtText(result *ParseResult, idx int) string {
	if idx < 0 || idx >= len(result.Stmts) {
		return ""
	}

	stmt := result.Stmts[idx]
	start := int(stmt.StmtLocation)
	end := len(result.SQL)

	if stmt.StmtLen > 0 {
		end = start + int(stmt.StmtLen)
	}

	if start < 0 || start > len(result.SQL) || end > len(result.SQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(result.SQL[start:end])
}
