package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aqasim81/manifest-migrate/internal/migration"
)

// DefaultPath is the manifest file name used when none is configured.
const DefaultPath = "migration.conf"

// Manifest holds the ordered unit names for each run direction.
type Manifest struct {
	Apply  []string
	Revert []string
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestUnreadable, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestUnreadable, path, err)
	}

	return m, nil
}

// Parse reads a manifest: trimmed non-empty lines up to the first blank line
// form the apply list, lines up to the next blank line (or EOF) form the
// revert list, and anything after that is ignored.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{Apply: []string{}, Revert: []string{}}
	section := &m.Apply
	separators := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			separators++
			if separators > 1 {
				break
			}

			section = &m.Revert

			continue
		}

		*section = append(*section, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	return m, nil
}

// Units returns the ordered unit names for the given direction.
func (m *Manifest) Units(d migration.Direction) []string {
	if d == migration.Down {
		return m.Revert
	}

	return m.Apply
}
