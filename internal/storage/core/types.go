// Package core defines the storage backend contract shared by the
// local-filesystem and object-storage implementations.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Driver identifies a concrete storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local directory (default)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// MetaRoot is the fixed sub-path of the chunked metadata store inside an
// archive. File listings of an archive typically exclude it.
const MetaRoot = "data.zarr"

// RootAttrsKey is the object holding the root group's attributes. An archive
// whose storage lacks this object (or holds an empty document) is empty.
const RootAttrsKey = MetaRoot + "/.zattrs"

// WriteChunkSize bounds the buffer used when streaming file contents into
// storage.
const WriteChunkSize = 8192

// Storage provides uniform byte-level operations over an archive rooted at a
// directory or an object-storage prefix. All paths are relative to the
// archive root and use forward slashes.
type Storage interface {
	Driver() Driver
	// Path returns the archive root: a directory path for local storage, or
	// "bucket/prefix" for object storage.
	Path() string
	Exists(ctx context.Context, target string) (bool, error)
	// List yields the relative paths of all files under target, recursively.
	// Directories / prefixes are not yielded. An empty target lists the
	// whole archive.
	List(ctx context.Context, target string) ([]string, error)
	Open(ctx context.Context, target string) (io.ReadCloser, error)
	// Put writes (or overwrites) target with the full contents of source,
	// streamed in bounded chunks.
	Put(ctx context.Context, source io.Reader, target string) error
	// Move relocates a file within the same backend.
	Move(ctx context.Context, source, target string) error
	// Remove deletes a file if present. Absent targets are not an error.
	Remove(ctx context.Context, target string) error
	// Empty reports whether no metadata attributes exist yet on the root.
	Empty(ctx context.Context) (bool, error)
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("storage: unsupported operation")

// Transfer copies every file from src into dst, preserving relative paths.
func Transfer(ctx context.Context, src, dst Storage) error {
	paths, err := src.List(ctx, "")
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := transferOne(ctx, src, dst, p); err != nil {
			return fmt.Errorf("transfer %s: %w", p, err)
		}
	}
	return nil
}

func transferOne(ctx context.Context, src, dst Storage, path string) error {
	r, err := src.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	return dst.Put(ctx, r, path)
}

// IsEmpty implements the shared Empty semantics: an archive is empty while
// its root attribute document is missing or holds no keys.
func IsEmpty(ctx context.Context, s Storage) (bool, error) {
	ok, err := s.Exists(ctx, RootAttrsKey)
	if err != nil || !ok {
		return !ok, err
	}
	r, err := s.Open(ctx, RootAttrsKey)
	if err != nil {
		return false, err
	}
	defer func() { _ = r.Close() }()
	b, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	doc := strings.TrimSpace(string(b))
	return doc == "" || doc == "{}", nil
}

// s3Pattern validates s3://bucket/key URLs against the official bucket
// naming rules.
var s3Pattern = regexp.MustCompile(
	`^s3://` +
		`(?:[a-z0-9][a-z0-9.-]{1,61}[a-z0-9])` + // bucket
		`(/(?:[a-zA-Z0-9._-]+/?)*)?$`, // key
)

// S3Path addresses an archive inside a bucket as parsed from an
// "s3://bucket/prefix" URL.
type S3Path struct {
	Bucket string
	Key    string
}

// IsS3Path reports whether path looks like an s3:// URL.
func IsS3Path(path string) bool { return strings.HasPrefix(path, "s3://") }

// ParseS3Path validates and splits an s3:// URL into bucket and key.
func ParseS3Path(url string) (S3Path, error) {
	url = strings.TrimSpace(url)
	if len(url) < 8 || len(url) > 1023 {
		return S3Path{}, fmt.Errorf("invalid s3 url length: %q", url)
	}
	rest := strings.TrimPrefix(url, "s3://")
	bucket, key, _ := strings.Cut(rest, "/")
	// rules the regexp cannot express
	if strings.HasPrefix(bucket, "xn--") || strings.HasPrefix(bucket, "sthree-") ||
		strings.HasSuffix(bucket, "-s3alias") || strings.Contains(bucket, "..") {
		return S3Path{}, fmt.Errorf("invalid s3 bucket name: %q", bucket)
	}
	if !s3Pattern.MatchString(url) {
		return S3Path{}, fmt.Errorf("invalid s3 url: %q", url)
	}
	return S3Path{Bucket: bucket, Key: strings.Trim(key, "/")}, nil
}

// String renders the path as "bucket/key".
func (p S3Path) String() string {
	if p.Key == "" {
		return p.Bucket
	}
	return p.Bucket + "/" + p.Key
}
