package runner

import "errors"

// ErrAlreadyApplied indicates an apply was skipped because the unit is recorded as applied.
var ErrAlreadyApplied = errors.New("migration already applied")

// ErrNotApplied indicates a revert was skipped because the unit is not recorded as applied.
var ErrNotApplied = errors.New("migration does not exist")

// ErrStateCheck indicates the applied-state lookup for a unit failed.
var ErrStateCheck = errors.New("checking migration state")

// ErrStateRecord indicates recording or removing a unit's applied state failed.
var ErrStateRecord = errors.New("updating migration state")
