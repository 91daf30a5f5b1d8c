package executor

import "errors"

// ErrStatementFailed indicates a statement of a unit's script failed to execute.
var ErrStatementFailed = errors.New("statement execution failed")

// ErrUnknownSplitter indicates an unrecognised statement splitting strategy name.
var ErrUnknownSplitter = errors.New("unknown statement splitter")

// ErrSplitFailed indicates a script could not be divided into statements.
var ErrSplitFailed = errors.New("splitting script into statements")
