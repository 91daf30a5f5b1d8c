package migration

import "errors"

// ErrUnitLoad indicates a unit's script file could not be read.
var ErrUnitLoad = errors.New("loading migration script")
