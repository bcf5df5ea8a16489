package storage

import (
	"context"
	"log/slog"

	fsstore "github.com/sdsc-ordes/modos-api/internal/storage/fs"
	s3store "github.com/sdsc-ordes/modos-api/internal/storage/s3"
)

// Open selects a Storage implementation from the archive path: "s3://"
// prefixed paths open the object-storage backend, anything else a local
// directory.
func Open(ctx context.Context, path string, s3cfg S3Config) (Storage, error) {
	if IsS3Path(path) {
		slog.Info("using remote storage", "path", path, "endpoint", s3cfg.Endpoint)
		return s3store.New(ctx, path, s3cfg)
	}
	slog.Info("using local storage", "path", path)
	return fsstore.New(path)
}
