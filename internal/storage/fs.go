package storage

import (
	fsstore "github.com/sdsc-ordes/modos-api/internal/storage/fs"
)

// NewLocal constructs a local-filesystem Storage rooted at path.
func NewLocal(path string) (Storage, error) { return fsstore.New(path) }

// LocalStore exposes the concrete local driver for callers that need the
// directory-level operations (removing a whole archive).
type LocalStore = fsstore.Store
