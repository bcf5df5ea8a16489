package modo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sdsc-ordes/modos-api/pkg/model"
)

// DeclarationEntry is one item of a declaration file: the element's
// attributes plus the arguments that cannot be expressed as attributes.
type DeclarationEntry struct {
	Element map[string]any  `yaml:"element"`
	Args    DeclarationArgs `yaml:"args"`
}

// DeclarationArgs carries per-element build arguments.
type DeclarationArgs struct {
	SourceFile string `yaml:"source_file"`
	PartOf     string `yaml:"part_of"`
}

// ParseDeclaration decodes a YAML declaration: a list of entries, each
// with an element (typed by its "@type" attribute) and optional args.
func ParseDeclaration(r io.Reader) ([]DeclarationEntry, error) {
	var entries []DeclarationEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding declaration: %w", err)
	}
	return entries, nil
}

// LoadDeclaration reads a declaration file from disk.
func LoadDeclaration(declPath string) ([]DeclarationEntry, error) {
	f, err := os.Open(declPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDeclaration(f)
}

// BuildFromFile opens (or creates) the archive at archivePath and brings
// it in line with the declaration file: declared elements are added or
// updated in order, and unless keepExtra is set, existing elements absent
// from the declaration are removed.
func BuildFromFile(ctx context.Context, declPath, archivePath string, opts Options, keepExtra bool) (*MODO, error) {
	entries, err := LoadDeclaration(declPath)
	if err != nil {
		return nil, err
	}
	return Build(ctx, archivePath, entries, opts, keepExtra)
}

// Build applies a parsed declaration to the archive at archivePath.
func Build(ctx context.Context, archivePath string, entries []DeclarationEntry, opts Options, keepExtra bool) (*MODO, error) {
	var root map[string]any
	declared := make(map[string]bool)
	for _, entry := range entries {
		tag, id, err := entryIdentity(entry)
		if err != nil {
			return nil, err
		}
		if tag == "MODO" {
			if root != nil {
				return nil, fmt.Errorf("declaration holds more than one digital object")
			}
			root = entry.Element
			continue
		}
		kind, ok := model.KindFromTag(tag)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, tag)
		}
		fullID := model.FullID(kind, model.LocalID(id))
		if declared[groupPath(fullID)] {
			return nil, fmt.Errorf("%w: %s declared twice", ErrDuplicateID, fullID)
		}
		declared[groupPath(fullID)] = true
	}
	if root != nil {
		applyRootDefaults(&opts, root)
	}

	m, err := Open(ctx, archivePath, opts)
	if err != nil {
		return nil, err
	}
	if root != nil {
		if _, err := m.tree.MergeAttrs(ctx, "", rootAttrs(root)); err != nil {
			return nil, err
		}
		if err := m.tree.Consolidate(ctx); err != nil {
			return nil, err
		}
	}

	if !keepExtra {
		if err := m.removeUndeclared(ctx, declared); err != nil {
			return nil, err
		}
	}

	for _, entry := range entries {
		tag, _, _ := entryIdentity(entry)
		if tag == "MODO" {
			continue
		}
		if err := m.applyEntry(ctx, entry); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func entryIdentity(entry DeclarationEntry) (tag, id string, err error) {
	tag, _ = entry.Element[model.TypeKey].(string)
	if tag == "" {
		return "", "", fmt.Errorf("%w: declaration entry without %s", ErrUnknownType, model.TypeKey)
	}
	id, _ = entry.Element["id"].(string)
	if id == "" {
		return "", "", fmt.Errorf("declaration entry of type %s without id", tag)
	}
	return tag, id, nil
}

// applyRootDefaults fills creation options from the declared root record
// so building into an empty location yields the declared object.
func applyRootDefaults(opts *Options, root map[string]any) {
	pick := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := root[key].(string); ok {
			*dst = v
		}
	}
	pick(&opts.ID, "id")
	pick(&opts.Name, "name")
	pick(&opts.Description, "description")
	pick(&opts.CreationDate, "creation_date")
	pick(&opts.LastUpdateDate, "last_update_date")
	pick(&opts.SourceURI, "source_uri")
	if len(opts.HasAssay) == 0 {
		if list, ok := root["has_assay"].([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					opts.HasAssay = append(opts.HasAssay, s)
				}
			}
		}
	}
}

func rootAttrs(root map[string]any) map[string]any {
	attrs := make(map[string]any, len(root))
	for k, v := range root {
		if k == model.TypeKey || k == "id" {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

// applyEntry adds the declared element, or updates it when its id is
// already taken.
func (m *MODO) applyEntry(ctx context.Context, entry DeclarationEntry) error {
	tag, id, err := entryIdentity(entry)
	if err != nil {
		return err
	}
	kind, _ := model.KindFromTag(tag)
	fullID := model.FullID(kind, model.LocalID(id))
	element, err := model.FromAttrs(fullID, entry.Element)
	if err != nil {
		return err
	}
	if bearer, ok := element.(model.DataBearer); ok {
		if bearer.GetDataPath() == "" && entry.Args.SourceFile != "" {
			bearer.SetDataPath(path.Base(entry.Args.SourceFile))
		}
	}
	exists, err := m.tree.GroupExists(ctx, groupPath(fullID))
	if err != nil {
		return err
	}
	if exists {
		return m.UpdateElement(ctx, fullID, element, entry.Args.SourceFile, entry.Args.PartOf)
	}
	return m.AddElement(ctx, element, entry.Args.SourceFile, entry.Args.PartOf)
}

// removeUndeclared drops every existing element whose id is not part of
// the declaration.
func (m *MODO) removeUndeclared(ctx context.Context, declared map[string]bool) error {
	snap, err := m.tree.Snapshot(ctx)
	if err != nil {
		return err
	}
	for group := range snap {
		if !strings.Contains(group, "/") || declared[group] {
			continue
		}
		if err := m.RemoveElement(ctx, group); err != nil {
			return err
		}
	}
	return nil
}
