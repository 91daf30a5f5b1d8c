package migration

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is the migrations root used when none is configured.
const DefaultDir = "migrations"

// Script file names inside each unit directory.
const (
	UpScript   = "up.sql"
	DownScript = "down.sql"
)

// Direction selects which script of a unit a run executes.
type Direction int

// Run directions.
const (
	Up Direction = iota
	Down
)

// Script returns the script file name for the direction.
func (d Direction) Script() string {
	if d == Down {
		return DownScript
	}

	return UpScript
}

func (d Direction) String() string {
	if d == Down {
		return "revert"
	}

	return "apply"
}

// Unit is one migration script loaded from disk.
type Unit struct {
	Name      string    // directory name under the migrations root
	Direction Direction // which script was loaded
	Path      string    // path to the loaded script
	SQL       string    // raw script contents
}

// ScriptPath returns root/name/<script> for the direction.
func ScriptPath(root, name string, d Direction) string {
	return filepath.Join(root, name, d.Script())
}

// Load reads the script of unit name for direction d under root.
func Load(root, name string, d Direction) (*Unit, error) {
	path := ScriptPath(root, name, d)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnitLoad, path, err)
	}

	return &Unit{
		Name:      name,
		Direction: d,
		Path:      path,
		SQL:       string(data),
	}, nil
}
