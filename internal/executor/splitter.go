package executor

import (
	"fmt"
	"strings"

	"github.com/aqasim81/manifest-migrate/internal/parser"
)

// Splitter strategy names.
const (
	SplitterNaive    = "naive"
	SplitterPostgres = "postgres"
)

// Delimiter separates statements for the naive splitter.
const Delimiter = ";"

// Splitter divides a script into individual statements.
type Splitter interface {
	Split(sql string) ([]string, error)
}

// SplitterFunc adapts a function to Splitter.
type SplitterFunc func(sql string) ([]string, error)

// Split calls f.
func (f SplitterFunc) Split(sql string) ([]string, error) { return f(sql) }

// NewSplitter returns the strategy registered under name. An empty name
// selects the naive splitter.
func NewSplitter(name string) (Splitter, error) {
	switch name {
	case "", SplitterNaive:
		return SplitterFunc(NaiveSplit), nil
	case SplitterPostgres:
		return SplitterFunc(parser.Split), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownSplitter, name, SplitterNaive, SplitterPostgres)
	}
}

// NaiveSplit splits sql on every semicolon, trims each piece and drops pieces
// that are empty or hold only "--" line comments. It does not understand
// quoting: a semicolon inside a string literal, comment or function body
// splits the statement.
func NaiveSplit(sql string) ([]string, error) {
	pieces := strings.Split(sql, Delimiter)
	stmts := make([]string, 0, len(pieces))

	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" || commentOnly(p) {
			continue
		}

		stmts = append(stmts, p)
	}

	return stmts, nil
}

func commentOnly(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}

	return true
}
