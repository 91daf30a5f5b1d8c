package manifest

import "errors"

// ErrManifestUnreadable indicates the manifest file could not be opened or read.
var ErrManifestUnreadable = errors.New("manifest unreadable")
