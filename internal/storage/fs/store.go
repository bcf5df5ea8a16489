// Package fs implements the storage contract on a local directory tree.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

// Store implements core.Storage using direct file I/O. Directories are
// auto-created on write. Not concurrent-writer safe beyond per-file renames.
type Store struct {
	root string
}

// New returns a filesystem store rooted at path, creating the directory if
// needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("fs: empty root path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Path returns the archive root directory.
func (s *Store) Path() string { return s.root }

// sanitize ensures target stays under the root: no traversal, no absolute
// paths.
func sanitize(target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("fs: empty path")
	}
	if strings.HasPrefix(target, "/") {
		return "", fmt.Errorf("fs: absolute path %q", target)
	}
	clean := filepath.ToSlash(filepath.Clean(target))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("fs: path %q escapes storage root", target)
	}
	return clean, nil
}

func (s *Store) abs(target string) (string, error) {
	clean, err := sanitize(target)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *Store) Exists(_ context.Context, target string) (bool, error) {
	p, err := s.abs(target)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(_ context.Context, target string) ([]string, error) {
	dir := s.root
	if target != "" {
		p, err := s.abs(target)
		if err != nil {
			return nil, err
		}
		dir = p
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) && path == dir {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) Open(_ context.Context, target string) (io.ReadCloser, error) {
	p, err := s.abs(target)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *Store) Put(_ context.Context, source io.Reader, target string) error {
	p, err := s.abs(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	// stream through a temp file, then move into place
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	buf := make([]byte, core.WriteChunkSize)
	if _, err := io.CopyBuffer(tmp, source, buf); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (s *Store) Move(_ context.Context, source, target string) error {
	src, err := s.abs(source)
	if err != nil {
		return err
	}
	dst, err := s.abs(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (s *Store) Remove(_ context.Context, target string) error {
	p, err := s.abs(target)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err == nil {
		slog.Info("permanently deleted file from local storage", "path", target)
	}
	return err
}

func (s *Store) Empty(ctx context.Context) (bool, error) {
	return core.IsEmpty(ctx, s)
}

// RemoveAll deletes the archive directory itself. Used when destroying a
// whole digital object on local storage.
func (s *Store) RemoveAll() error {
	return os.RemoveAll(s.root)
}
