// Package storage re-exports the storage backend abstractions for stable
// imports by higher layers.
package storage

import (
	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

type (
	// Driver identifies a storage backend driver.
	Driver = core.Driver
	// Storage is the interface for archive storage backends.
	Storage = core.Storage
	// S3Path addresses an archive inside a bucket.
	S3Path = core.S3Path
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory

	// MetaRoot is the fixed sub-path of the metadata store in an archive.
	MetaRoot = core.MetaRoot
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// Transfer copies all contents of one storage into another.
var Transfer = core.Transfer

// IsS3Path reports whether a path addresses an object-storage archive.
var IsS3Path = core.IsS3Path

// ParseS3Path validates and splits an s3://bucket/key URL.
var ParseS3Path = core.ParseS3Path
