// Package meta implements the hierarchical metadata tree of an archive: a
// zarr-v2 compatible layout of named groups carrying flat attribute maps,
// persisted through the storage backend.
//
// Writes to nested groups are not guaranteed to be visible through earlier
// reads, especially over object storage. Mutators must call Consolidate
// before returning; all readers go through Snapshot, which always
// re-materializes a consistent view.
package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/sdsc-ordes/modos-api/internal/storage/core"
)

const (
	attrsFile        = ".zattrs"
	groupFile        = ".zgroup"
	consolidatedFile = ".zmetadata"

	zarrFormat             = 2
	zarrConsolidatedFormat = 1
)

// Tree is a hierarchical attribute tree rooted at the archive's fixed
// metadata sub-path. Group paths are relative to that root; the empty path
// addresses the root group.
type Tree struct {
	store core.Storage
}

// NewTree returns a tree persisted through store.
func NewTree(store core.Storage) *Tree { return &Tree{store: store} }

// Snapshot is a materialized, consistent view of every group's attributes,
// keyed by group path ("" for the root).
type Snapshot map[string]map[string]any

func key(parts ...string) string {
	elems := []string{core.MetaRoot}
	for _, p := range parts {
		if p != "" {
			elems = append(elems, p)
		}
	}
	return strings.Join(elems, "/")
}

// Init creates the root group and the given container groups. Existing
// groups are left untouched.
func (t *Tree) Init(ctx context.Context, containers []string) error {
	if err := t.CreateGroup(ctx, ""); err != nil {
		return err
	}
	for _, c := range containers {
		if err := t.CreateGroup(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// CreateGroup writes the group marker for path, creating intermediate
// groups implicitly (the layout has no directory objects).
func (t *Tree) CreateGroup(ctx context.Context, path string) error {
	doc, _ := json.Marshal(map[string]int{"zarr_format": zarrFormat})
	return t.store.Put(ctx, bytes.NewReader(doc), key(path, groupFile))
}

// GroupExists reports whether path has a group marker.
func (t *Tree) GroupExists(ctx context.Context, path string) (bool, error) {
	return t.store.Exists(ctx, key(path, groupFile))
}

// Attrs returns the attribute map of a group. A group without an attribute
// document yields an empty map.
func (t *Tree) Attrs(ctx context.Context, path string) (map[string]any, error) {
	ok, err := t.store.Exists(ctx, key(path, attrsFile))
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{}, nil
	}
	r, err := t.store.Open(ctx, key(path, attrsFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]any)
	if err := json.Unmarshal(b, &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes of %q: %w", path, err)
	}
	return attrs, nil
}

// SetAttrs replaces the whole attribute document of a group.
func (t *Tree) SetAttrs(ctx context.Context, path string, attrs map[string]any) error {
	doc, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return t.store.Put(ctx, bytes.NewReader(doc), key(path, attrsFile))
}

// MergeAttrs merges incoming attributes into a group's document. Keys whose
// incoming value equals the stored one are skipped; a merge that changes
// nothing does not rewrite the document. Stored keys absent from incoming
// are kept, so a field can never be cleared through a merge.
func (t *Tree) MergeAttrs(ctx context.Context, path string, incoming map[string]any) (bool, error) {
	attrs, err := t.Attrs(ctx, path)
	if err != nil {
		return false, err
	}
	changed := false
	for k, v := range incoming {
		if cur, ok := attrs[k]; ok && equalValue(cur, v) {
			continue
		}
		attrs[k] = v
		changed = true
	}
	if !changed {
		return false, nil
	}
	return true, t.SetAttrs(ctx, path, attrs)
}

// DeleteAttr removes a single attribute from a group's document.
func (t *Tree) DeleteAttr(ctx context.Context, path, name string) error {
	attrs, err := t.Attrs(ctx, path)
	if err != nil {
		return err
	}
	if _, ok := attrs[name]; !ok {
		return nil
	}
	delete(attrs, name)
	return t.SetAttrs(ctx, path, attrs)
}

// DeleteGroup removes a group and all of its descendants.
func (t *Tree) DeleteGroup(ctx context.Context, path string) error {
	files, err := t.store.List(ctx, key(path))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := t.store.Remove(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// collect walks the live objects of the tree, returning every metadata
// document keyed by its path relative to the tree root.
func (t *Tree) collect(ctx context.Context) (map[string]map[string]any, error) {
	files, err := t.store.List(ctx, core.MetaRoot)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]map[string]any)
	for _, f := range files {
		rel := strings.TrimPrefix(f, core.MetaRoot+"/")
		base := rel[strings.LastIndex(rel, "/")+1:]
		if base != attrsFile && base != groupFile {
			continue
		}
		r, err := t.store.Open(ctx, f)
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(r)
		_ = r.Close()
		if err != nil {
			return nil, err
		}
		doc := make(map[string]any)
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f, err)
		}
		docs[rel] = doc
	}
	return docs, nil
}

// Consolidate materializes a fresh consolidated snapshot of all metadata
// documents so that subsequent reads observe the current state.
func (t *Tree) Consolidate(ctx context.Context) error {
	docs, err := t.collect(ctx)
	if err != nil {
		return err
	}
	out := map[string]any{
		"zarr_consolidated_format": zarrConsolidatedFormat,
		"metadata":                 docs,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return t.store.Put(ctx, bytes.NewReader(b), key(consolidatedFile))
}

// Snapshot returns the consolidated view of every group's attributes. It
// reads the consolidated document when present and falls back to walking
// the live objects of a never-consolidated tree.
func (t *Tree) Snapshot(ctx context.Context) (Snapshot, error) {
	ok, err := t.store.Exists(ctx, key(consolidatedFile))
	if err != nil {
		return nil, err
	}
	var docs map[string]map[string]any
	if ok {
		docs, err = t.readConsolidated(ctx)
	} else {
		docs, err = t.collect(ctx)
	}
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot)
	for rel, doc := range docs {
		switch {
		case rel == attrsFile:
			snap[""] = doc
		case strings.HasSuffix(rel, "/"+attrsFile):
			snap[strings.TrimSuffix(rel, "/"+attrsFile)] = doc
		case rel == groupFile || strings.HasSuffix(rel, "/"+groupFile):
			group := strings.TrimSuffix(strings.TrimSuffix(rel, groupFile), "/")
			if _, exists := snap[group]; !exists {
				snap[group] = map[string]any{}
			}
		}
	}
	return snap, nil
}

func (t *Tree) readConsolidated(ctx context.Context) (map[string]map[string]any, error) {
	r, err := t.store.Open(ctx, key(consolidatedFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Metadata map[string]map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode consolidated metadata: %w", err)
	}
	return doc.Metadata, nil
}

// Groups returns the paths of the immediate child groups of path, sorted.
func (s Snapshot) Groups(path string) []string {
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	var groups []string
	for g := range s {
		if g == "" || g == path || !strings.HasPrefix(g, prefix) {
			continue
		}
		rest := strings.TrimPrefix(g, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func equalValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	// normalize through json so typed values compare with stored ones
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}
