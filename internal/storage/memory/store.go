// Package memory implements an in-memory storage backend for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

// Store implements core.Storage backed by process memory. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	path string
	objs map[string][]byte
}

// New returns an in-memory store with the given nominal root path.
func New(path string) *Store {
	if path == "" {
		path = "memory"
	}
	return &Store{path: path, objs: make(map[string][]byte)}
}

func (s *Store) Driver() core.Driver { return core.DriverMemory }

func (s *Store) Path() string { return s.path }

func (s *Store) Exists(_ context.Context, target string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objs[target]
	return ok, nil
}

func (s *Store) List(_ context.Context, target string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := target
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var paths []string
	for k := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			paths = append(paths, k)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) Open(_ context.Context, target string) (io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.objs[target]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory: %s not found", target)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return io.NopCloser(bytes.NewReader(cp)), nil
}

func (s *Store) Put(_ context.Context, source io.Reader, target string) error {
	b, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objs[target] = b
	s.mu.Unlock()
	return nil
}

func (s *Store) Move(_ context.Context, source, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objs[source]
	if !ok {
		return fmt.Errorf("memory: %s not found", source)
	}
	s.objs[target] = b
	delete(s.objs, source)
	return nil
}

func (s *Store) Remove(_ context.Context, target string) error {
	s.mu.Lock()
	delete(s.objs, target)
	s.mu.Unlock()
	return nil
}

func (s *Store) Empty(ctx context.Context) (bool, error) {
	return core.IsEmpty(ctx, s)
}
