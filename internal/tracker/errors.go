package tracker

import "errors"

// ErrTableCreation indicates the tracking table could not be created.
var ErrTableCreation = errors.New("creating _migrations table")

// ErrAlreadyRecorded indicates a record was attempted for a name that is already tracked.
var ErrAlreadyRecorded = errors.New("migration already recorded")
