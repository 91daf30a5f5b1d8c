package runner

import (
	"errors"
	"time"

	"github.com/aqasim81/manifest-migrate/internal/migration"
)

// Unit statuses reported via Outcome.
const (
	StatusStarting = "starting"
	StatusApplied  = "applied"
	StatusReverted = "reverted"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Outcome is the result of processing one unit. A starting Outcome is emitted
// through the progress callback before the unit is attempted.
type Outcome struct {
	Unit       string
	Direction  migration.Direction
	Status     string
	Statements int
	Duration   time.Duration
	Err        error
}

// Succeeded reports whether the unit's script was committed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusApplied || o.Status == StatusReverted
}

// Report holds the per-unit outcomes of one run, in manifest order.
type Report struct {
	Direction migration.Direction
	Outcomes  []Outcome
}

// Summary counts outcomes by kind.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Summary tallies the report.
func (r *Report) Summary() Summary {
	var s Summary

	for _, o := range r.Outcomes {
		switch {
		case o.Succeeded():
			s.Succeeded++
		case o.Status == StatusSkipped:
			s.Skipped++
		case o.Status == StatusFailed:
			s.Failed++
		}
	}

	return s
}

// Failures returns the failed outcomes in order.
func (r *Report) Failures() []Outcome {
	var failed []Outcome

	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}

	return failed
}

// classify maps a unit error to its status.
func classify(d migration.Direction, err error) string {
	switch {
	case err == nil && d == migration.Down:
		return StatusReverted
	case err == nil:
		return StatusApplied
	case errors.Is(err, ErrAlreadyApplied), errors.Is(err, ErrNotApplied):
		return StatusSkipped
	default:
		return StatusFailed
	}
}
