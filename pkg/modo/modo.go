// Package modo implements the multi-omics digital object: a self-contained
// archive bundling data files with hierarchical metadata, stored on a local
// directory or an object-storage bucket with identical semantics.
//
// All lifecycle operations keep metadata, has-part relationships and
// physical files mutually consistent, and end by consolidating the metadata
// tree so subsequent reads observe the new state. The archive is
// single-writer: concurrent mutators may silently lose updates.
package modo

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sdsc-ordes/modos-api/internal/genomics"
	"github.com/sdsc-ordes/modos-api/internal/meta"
	"github.com/sdsc-ordes/modos-api/internal/remote"
	"github.com/sdsc-ordes/modos-api/internal/storage"
	"github.com/sdsc-ordes/modos-api/pkg/model"
)

const dateLayout = "2006-01-02"

// Options configures opening or creating an archive.
type Options struct {
	// ID sets the root record id. Defaults to the base name of the archive
	// path.
	ID          string
	Name        string
	Description string
	SourceURI   string
	// CreationDate and LastUpdateDate default to today (YYYY-MM-DD).
	CreationDate   string
	LastUpdateDate string
	// HasAssay lists assay ids attached to the root on creation.
	HasAssay []string
	// Endpoint is the modos server URL used to discover service endpoints
	// for s3:// archive paths.
	Endpoint string
	// Services overrides individual service URLs (e.g. "s3", "htsget").
	Services map[string]string
	// S3 carries explicit object-storage connection parameters; its
	// Endpoint field is filled from service discovery when empty.
	S3 storage.S3Config
}

// MODO is a handle on one digital object archive.
type MODO struct {
	store    storage.Storage
	tree     *meta.Tree
	endpoint *remote.EndpointManager
	id       string
}

// Open attaches to the archive at path, creating the root record and the
// fixed element containers if the archive is empty. Paths starting with
// s3:// select the object-storage backend.
func Open(ctx context.Context, archivePath string, opts Options) (*MODO, error) {
	store, em, err := openStorage(ctx, archivePath, opts)
	if err != nil {
		return nil, err
	}
	return NewFromStorage(ctx, store, em, opts)
}

// Create builds a fresh archive at path and fails with ErrAlreadyExists if
// a non-empty archive is already present there.
func Create(ctx context.Context, archivePath string, opts Options) (*MODO, error) {
	store, em, err := openStorage(ctx, archivePath, opts)
	if err != nil {
		return nil, err
	}
	empty, err := store.Empty(ctx)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, archivePath)
	}
	return NewFromStorage(ctx, store, em, opts)
}

func openStorage(ctx context.Context, archivePath string, opts Options) (storage.Storage, *remote.EndpointManager, error) {
	em := remote.New(opts.Endpoint, remote.Services(opts.Services))
	cfg := opts.S3
	if storage.IsS3Path(archivePath) && cfg.Endpoint == "" {
		endpoint, err := em.S3(ctx)
		if err != nil {
			return nil, nil, err
		}
		if endpoint == "" {
			return nil, nil, fmt.Errorf("s3 path %s requires an endpoint", archivePath)
		}
		cfg.Endpoint = endpoint
	}
	store, err := storage.Open(ctx, archivePath, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, em, nil
}

// NewFromStorage attaches to an archive through an already-constructed
// storage backend, initializing it if empty. The endpoint manager may be
// nil.
func NewFromStorage(ctx context.Context, store storage.Storage, em *remote.EndpointManager, opts Options) (*MODO, error) {
	if em == nil {
		em = remote.New(opts.Endpoint, remote.Services(opts.Services))
	}
	m := &MODO{store: store, tree: meta.NewTree(store), endpoint: em}
	empty, err := store.Empty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		if err := m.initialize(ctx, opts); err != nil {
			return nil, err
		}
		return m, nil
	}
	attrs, err := m.tree.Attrs(ctx, "")
	if err != nil {
		return nil, err
	}
	m.id, _ = attrs["id"].(string)
	return m, nil
}

func (m *MODO) initialize(ctx context.Context, opts Options) error {
	id := opts.ID
	if id == "" {
		id = path.Base(strings.TrimSuffix(m.store.Path(), "/"))
	}
	today := time.Now().Format(dateLayout)
	root := &model.MODO{
		ID:             id,
		Name:           opts.Name,
		Description:    opts.Description,
		CreationDate:   opts.CreationDate,
		LastUpdateDate: opts.LastUpdateDate,
		HasAssay:       opts.HasAssay,
		SourceURI:      opts.SourceURI,
	}
	if root.CreationDate == "" {
		root.CreationDate = today
	}
	if root.LastUpdateDate == "" {
		root.LastUpdateDate = today
	}
	model.NormalizeHasPartIDs(root)

	containers := make([]string, 0, len(model.ElementTypes()))
	for _, t := range model.ElementTypes() {
		containers = append(containers, string(t))
	}
	if err := m.tree.Init(ctx, containers); err != nil {
		return err
	}
	attrs, err := model.AttrMap(root)
	if err != nil {
		return err
	}
	attrs["id"] = id
	if err := m.tree.SetAttrs(ctx, "", attrs); err != nil {
		return err
	}
	m.id = id
	return m.tree.Consolidate(ctx)
}

// ID returns the archive's root id.
func (m *MODO) ID() string { return m.id }

// Path returns the archive root path.
func (m *MODO) Path() string { return m.store.Path() }

// IsRemote reports whether the archive lives on object storage.
func (m *MODO) IsRemote() bool { return m.store.Driver() == storage.DriverS3 }

// Storage exposes the underlying backend.
func (m *MODO) Storage() storage.Storage { return m.store }

// HtsgetURL builds the htsget streaming URL for one of the archive's
// genomic files, or "" when no htsget endpoint is configured. Alignment
// formats stream from the reads endpoint and variant formats from the
// variants endpoint; other formats cannot be streamed.
func (m *MODO) HtsgetURL(ctx context.Context, dataPath string) (string, error) {
	base, err := m.endpoint.Htsget(ctx)
	if err != nil || base == "" {
		return "", err
	}
	format, err := genomics.FromPath(dataPath)
	if err != nil {
		return "", err
	}
	var route string
	switch format {
	case genomics.CRAM:
		route = "reads"
	case genomics.VCF, genomics.BCF:
		route = "variants"
	default:
		return "", fmt.Errorf("%s files cannot be streamed over htsget", format)
	}
	return strings.TrimSuffix(base, "/") + "/" + route + "/" + m.id + "/" + dataPath, nil
}

// groupPath maps a type-prefixed element id to its metadata group path.
func groupPath(id string) string {
	id = strings.TrimPrefix(id, "/")
	if kind, local, ok := strings.Cut(id, "/"); ok {
		return kind + "/" + model.SanitizeID(local)
	}
	return model.SanitizeID(id)
}

// Metadata returns the consolidated flat attribute view: the root record
// keyed by the root id, and every element keyed by its type-prefixed id.
func (m *MODO) Metadata(ctx context.Context) (map[string]map[string]any, error) {
	snap, err := m.tree.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any)
	for group, attrs := range snap {
		switch {
		case group == "":
			rootID, _ := attrs["id"].(string)
			if rootID == "" {
				rootID = m.id
			}
			out[rootID] = attrs
		case strings.Contains(group, "/"):
			out[group] = attrs
		}
		// top-level containers are pure structure, not records
	}
	return out, nil
}

// ShowContents renders a YAML document of the archive contents: one
// element, one container's elements, or everything when element is empty.
func (m *MODO) ShowContents(ctx context.Context, element string) (string, error) {
	metadata, err := m.Metadata(ctx)
	if err != nil {
		return "", err
	}
	var doc any = metadata
	if element != "" {
		if attrs, ok := metadata[element]; ok {
			doc = attrs
		} else if isContainer(element) {
			subset := make(map[string]map[string]any)
			for k, v := range metadata {
				if strings.HasPrefix(k, element+"/") {
					subset[k] = v
				}
			}
			doc = subset
		}
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isContainer(name string) bool {
	for _, t := range model.ElementTypes() {
		if string(t) == name {
			return true
		}
	}
	return false
}

// ListFiles lists the archive's data files, excluding the metadata store.
func (m *MODO) ListFiles(ctx context.Context) ([]string, error) {
	all, err := m.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range all {
		if f == storage.MetaRoot || strings.HasPrefix(f, storage.MetaRoot+"/") {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// ListSamples lists the ids of all samples in the archive.
func (m *MODO) ListSamples(ctx context.Context) ([]string, error) {
	metadata, err := m.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	var samples []string
	for id := range metadata {
		if strings.HasPrefix(id, string(model.TypeSample)+"/") {
			samples = append(samples, id)
		}
	}
	return samples, nil
}

// touch updates the root's last_update_date to today.
func (m *MODO) touch(ctx context.Context) error {
	_, err := m.tree.MergeAttrs(ctx, "", map[string]any{
		"last_update_date": time.Now().Format(dateLayout),
	})
	return err
}

// AddElement adds a user-facing element to the archive. A source file, if
// given, is bound to the element before any metadata is written. Assays
// always link to the root; other elements link to partOf when given.
func (m *MODO) AddElement(ctx context.Context, element model.Element, sourceFile, partOf string) error {
	return m.addElement(ctx, element, sourceFile, partOf, model.UserElementTypes())
}

func (m *MODO) addElement(ctx context.Context, element model.Element, sourceFile, partOf string, allowed []model.ElementType) error {
	kind, ok := model.KindOf(element)
	if !ok || !containsType(allowed, kind) {
		return fmt.Errorf("%w: %s", ErrUnknownType, element.TypeTag())
	}
	localID := model.LocalID(element.ElementID())
	fullID := model.FullID(kind, localID)
	group := groupPath(fullID)

	exists, err := m.tree.GroupExists(ctx, group)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, fullID)
	}

	// File binding comes first so a copy failure leaves no dangling
	// metadata.
	if sourceFile != "" {
		bearer, ok := element.(model.DataBearer)
		if !ok {
			return fmt.Errorf("%w: %s cannot hold a data file", ErrInvalidPath, element.TypeTag())
		}
		if bearer.GetDataPath() == "" {
			bearer.SetDataPath(path.Base(sourceFile))
		}
		if err := NewDataElement(bearer, m.store).AddFile(ctx, sourceFile, bearer.GetDataPath()); err != nil {
			return err
		}
	}

	if kind == model.TypeAssay || partOf != "" {
		if err := m.linkHasPart(ctx, partOf, element.TypeTag(), fullID); err != nil {
			return err
		}
	}

	model.NormalizeHasPartIDs(element)
	attrs, err := model.AttrMap(element)
	if err != nil {
		return err
	}
	if err := m.tree.CreateGroup(ctx, group); err != nil {
		return err
	}
	if err := m.tree.SetAttrs(ctx, group, attrs); err != nil {
		return err
	}
	if err := m.touch(ctx); err != nil {
		return err
	}
	return m.tree.Consolidate(ctx)
}

// linkHasPart appends childID to the matching has-part attribute of the
// parent (the root when parentID is empty), after verifying the parent's
// type can contain children of childTag.
func (m *MODO) linkHasPart(ctx context.Context, parentID, childTag, childID string) error {
	parentGroup := ""
	if parentID != "" {
		parentGroup = groupPath(parentID)
		exists, err := m.tree.GroupExists(ctx, parentGroup)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: parent %s", ErrNotFound, parentID)
		}
	}
	attrs, err := m.tree.Attrs(ctx, parentGroup)
	if err != nil {
		return err
	}
	parentTag, _ := attrs[model.TypeKey].(string)
	if parentTag == "" && parentGroup == "" {
		parentTag = "MODO"
	}
	slot, err := model.CanContain(parentTag, childTag)
	if err != nil {
		return fmt.Errorf("cannot make %s part of %s: %w", childID, parentTag, err)
	}
	attrs[slot] = model.AppendHasPart(attrs[slot], childID)
	return m.tree.SetAttrs(ctx, parentGroup, attrs)
}

// UpdateElement merges new values from record into the element at id.
// Fields whose new value is empty or equal to the stored one are never
// written, so update can replace values but not clear them. A source file
// or a changed data_path triggers file reconciliation first; an update
// that changes nothing is a no-op and does not touch the root timestamp.
func (m *MODO) UpdateElement(ctx context.Context, id string, record model.Element, sourceFile, partOf string) error {
	group := groupPath(id)
	exists, err := m.tree.GroupExists(ctx, group)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.tree.CreateGroup(ctx, group); err != nil {
			return err
		}
	}
	attrs, err := m.tree.Attrs(ctx, group)
	if err != nil {
		return err
	}
	existingTag := existingTypeTag(id, attrs)
	if existingTag != "" && existingTag != record.TypeTag() {
		return fmt.Errorf("%w: %s is a %s, not a %s", ErrTypeMismatch, id, existingTag, record.TypeTag())
	}

	changed := false
	if bearer, ok := record.(model.DataBearer); ok {
		existing, err := model.FromAttrs(id, attrs)
		if err != nil {
			return err
		}
		if existingBearer, ok := existing.(model.DataBearer); ok {
			binder := NewDataElement(existingBearer, m.store)
			moved, err := binder.UpdateFile(ctx, bearer.GetDataPath(), sourceFile)
			if err != nil {
				return err
			}
			// checksum was refreshed on the stored record; sync it back
			bearer.SetChecksum(existingBearer.GetChecksum())
			changed = changed || moved
		}
	}

	if partOf != "" {
		kind, ok := model.KindOf(record)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownType, record.TypeTag())
		}
		fullID := model.FullID(kind, model.LocalID(record.ElementID()))
		if err := m.linkHasPart(ctx, partOf, record.TypeTag(), fullID); err != nil {
			return err
		}
		changed = true
	}

	model.NormalizeHasPartIDs(record)
	incoming, err := model.AttrMap(record)
	if err != nil {
		return err
	}
	merged, err := m.tree.MergeAttrs(ctx, group, incoming)
	if err != nil {
		return err
	}
	if !merged && !changed {
		return nil
	}
	if err := m.touch(ctx); err != nil {
		return err
	}
	return m.tree.Consolidate(ctx)
}

// existingTypeTag resolves the stored type of an element, falling back to
// the container prefix for groups created without attributes.
func existingTypeTag(id string, attrs map[string]any) string {
	if tag, ok := attrs[model.TypeKey].(string); ok && tag != "" {
		return tag
	}
	if len(attrs) > 0 {
		// legacy records were written without a type tag
		return "DataEntity"
	}
	kind, _, _ := strings.Cut(strings.TrimPrefix(id, "/"), "/")
	switch model.ElementType(kind) {
	case model.TypeSample:
		return "Sample"
	case model.TypeAssay:
		return "Assay"
	case model.TypeData:
		return "DataEntity"
	case model.TypeReference:
		return "ReferenceGenome"
	case model.TypeSequence:
		return "ReferenceSequence"
	}
	return ""
}

// RemoveElement removes an element, its physical file(s), and every
// reference to it held by other elements. Removing an absent id fails with
// ErrNotFound; re-running a remove whose file deletion already happened is
// safe.
func (m *MODO) RemoveElement(ctx context.Context, id string) error {
	group := groupPath(id)
	exists, err := m.tree.GroupExists(ctx, group)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	attrs, err := m.tree.Attrs(ctx, group)
	if err != nil {
		return err
	}

	// Files go first: an interrupted remove orphans a file, never metadata
	// pointing at nothing.
	if raw, ok := attrs["data_path"]; ok {
		dataPath, _ := raw.(string)
		if dataPath == "" {
			return fmt.Errorf("%w: data_path of %s is not a usable path", ErrInvalidPath, id)
		}
		element, err := model.FromAttrs(id, attrs)
		if err != nil {
			return err
		}
		if bearer, ok := element.(model.DataBearer); ok {
			if err := NewDataElement(bearer, m.store).RemoveFile(ctx, dataPath); err != nil {
				return err
			}
		}
	}

	snap, err := m.tree.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := m.tree.DeleteGroup(ctx, group); err != nil {
		return err
	}
	if err := m.dropReferences(ctx, snap, group, id); err != nil {
		return err
	}
	if err := m.touch(ctx); err != nil {
		return err
	}
	return m.tree.Consolidate(ctx)
}

// dropReferences removes every scalar or list reference to id from all
// remaining groups.
func (m *MODO) dropReferences(ctx context.Context, snap meta.Snapshot, removedGroup, id string) error {
	for group, attrs := range snap {
		if group == removedGroup {
			continue
		}
		changed := false
		for key, value := range attrs {
			switch v := value.(type) {
			case string:
				if v == id {
					delete(attrs, key)
					changed = true
				}
			case []any:
				kept := v[:0]
				for _, item := range v {
					if s, ok := item.(string); ok && s == id {
						changed = true
						continue
					}
					kept = append(kept, item)
				}
				if changed {
					attrs[key] = kept
				}
			}
		}
		if changed {
			if err := m.tree.SetAttrs(ctx, group, attrs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveObject destroys the whole archive: every file is deleted, and on
// local storage the containing directory is removed as well.
func (m *MODO) RemoveObject(ctx context.Context) error {
	files, err := m.store.List(ctx, "")
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := m.store.Remove(ctx, f); err != nil {
			return err
		}
	}
	if remover, ok := m.store.(interface{ RemoveAll() error }); ok {
		if err := remover.RemoveAll(); err != nil {
			return err
		}
	}
	slog.Info("permanently deleted archive", "path", m.store.Path())
	return nil
}

// Download transfers the whole archive into a local directory.
func (m *MODO) Download(ctx context.Context, targetDir string) error {
	dst, err := storage.NewLocal(targetDir)
	if err != nil {
		return err
	}
	return storage.Transfer(ctx, m.store, dst)
}

// Upload transfers the whole archive to an object-storage location.
func (m *MODO) Upload(ctx context.Context, url string, cfg storage.S3Config) error {
	dst, err := storage.NewS3(ctx, url, cfg)
	if err != nil {
		return err
	}
	return storage.Transfer(ctx, m.store, dst)
}

// Encrypt transforms the files of every data element with the cipher,
// skipping non-genomic and already-encrypted entries.
func (m *MODO) Encrypt(ctx context.Context, cipher Cipher) error {
	return m.sweepData(ctx, func(d *DataElement) error { return d.Encrypt(ctx, cipher) })
}

// Decrypt reverses Encrypt on every encrypted data element.
func (m *MODO) Decrypt(ctx context.Context, cipher Cipher) error {
	return m.sweepData(ctx, func(d *DataElement) error { return d.Decrypt(ctx, cipher) })
}

func (m *MODO) sweepData(ctx context.Context, op func(*DataElement) error) error {
	snap, err := m.tree.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, group := range snap.Groups(string(model.TypeData)) {
		element, err := model.FromAttrs(group, snap[group])
		if err != nil {
			return err
		}
		bearer, ok := element.(model.DataBearer)
		if !ok {
			continue
		}
		binder := NewDataElement(bearer, m.store)
		if err := op(binder); err != nil {
			return err
		}
		attrs, err := model.AttrMap(binder.Record())
		if err != nil {
			return err
		}
		if _, err := m.tree.MergeAttrs(ctx, group, attrs); err != nil {
			return err
		}
	}
	if err := m.touch(ctx); err != nil {
		return err
	}
	return m.tree.Consolidate(ctx)
}

func containsType(types []model.ElementType, t model.ElementType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
