package storage

import (
	memorystore "github.com/sdsc-ordes/modos-api/internal/storage/memory"
)

// NewMemory returns an in-memory Storage suitable for tests.
func NewMemory(path string) Storage { return memorystore.New(path) }
