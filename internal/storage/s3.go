package storage

import (
	"context"

	s3store "github.com/sdsc-ordes/modos-api/internal/storage/s3"
)

// S3Config re-exports the S3 driver configuration type.
type S3Config = s3store.Config

// NewS3 constructs an object-storage Storage for the archive at url.
func NewS3(ctx context.Context, url string, cfg S3Config) (Storage, error) {
	return s3store.New(ctx, url, cfg)
}

// NewMockS3ForTests exposes the in-memory S3 double for cross-package tests.
func NewMockS3ForTests(path S3Path) Storage { return s3store.NewMockForTests(path) }
