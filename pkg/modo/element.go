package modo

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/sdsc-ordes/modos-api/internal/genomics"
	"github.com/sdsc-ordes/modos-api/internal/storage"
	"github.com/sdsc-ordes/modos-api/pkg/model"
)

// Cipher is the envelope-encryption collaborator. It transforms a whole
// stream; suffix bookkeeping and checksum updates stay with the binder.
type Cipher interface {
	Encrypt(dst io.Writer, src io.Reader) error
	Decrypt(dst io.Writer, src io.Reader) error
}

// DataElement binds a data-bearing metadata record to its physical file(s)
// in storage: the primary file plus an optional companion index file that
// must travel with it.
type DataElement struct {
	record model.DataBearer
	store  storage.Storage
}

// NewDataElement wraps a record and the storage holding its files.
func NewDataElement(record model.DataBearer, store storage.Storage) *DataElement {
	return &DataElement{record: record, store: store}
}

// Record returns the wrapped record, reflecting any checksum or path
// updates performed by file operations.
func (d *DataElement) Record() model.DataBearer { return d.record }

// Checksum computes the BLAKE2b digest of a stream.
func Checksum(r io.Reader) (string, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checksumLocalFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return Checksum(f)
}

func (d *DataElement) checksumStored(ctx context.Context, path string) (string, error) {
	r, err := d.store.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()
	return Checksum(r)
}

// isGenomic reports whether the record's file is a genomic format. Data
// entities answer from their declared format, reference genomes from the
// file suffix.
func (d *DataElement) isGenomic() bool {
	if e, ok := d.record.(*model.DataEntity); ok {
		return genomics.IsGenomicFormat(string(e.DataFormat))
	}
	_, err := genomics.FromPath(d.record.GetDataPath())
	return err == nil
}

// AddFile copies a local source file into storage at target, together with
// its companion index file if one exists next to the source, then updates
// the record's checksum and data path.
func (d *DataElement) AddFile(ctx context.Context, source, target string) error {
	if target == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidPath)
	}
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	err = d.store.Put(ctx, src, target)
	_ = src.Close()
	if err != nil {
		return err
	}

	if srcIdx, ok := genomics.IndexPath(source); ok {
		if _, statErr := os.Stat(srcIdx); statErr == nil {
			targetIdx, _ := genomics.IndexPath(target)
			idx, err := os.Open(srcIdx)
			if err != nil {
				return err
			}
			err = d.store.Put(ctx, idx, targetIdx)
			_ = idx.Close()
			if err != nil {
				return err
			}
		}
	}

	sum, err := checksumLocalFile(source)
	if err != nil {
		return err
	}
	d.record.SetChecksum(sum)
	d.record.SetDataPath(target)
	return nil
}

// MoveFile relocates the currently-referenced file (and its index, if any)
// to target without recomputing the checksum.
func (d *DataElement) MoveFile(ctx context.Context, target string) error {
	source := d.record.GetDataPath()
	if source == "" {
		return fmt.Errorf("%w: record has no data path", ErrInvalidPath)
	}
	if err := d.store.Move(ctx, source, target); err != nil {
		return err
	}
	if srcIdx, ok := genomics.IndexPath(source); ok {
		if exists, err := d.store.Exists(ctx, srcIdx); err == nil && exists {
			targetIdx, _ := genomics.IndexPath(target)
			if err := d.store.Move(ctx, srcIdx, targetIdx); err != nil {
				return err
			}
		}
	}
	d.record.SetDataPath(target)
	return nil
}

// RemoveFile deletes a file and its index companion from storage. Absent
// files are not an error, so repeated removals are safe.
func (d *DataElement) RemoveFile(ctx context.Context, path string) error {
	if err := d.store.Remove(ctx, path); err != nil {
		return err
	}
	if idx, ok := genomics.IndexPath(path); ok {
		return d.store.Remove(ctx, idx)
	}
	return nil
}

// UpdateFile reconciles the stored file with a new path and optional new
// contents. An empty newPath keeps the stored path, so metadata-only
// updates pass through untouched. The four cases of {path changed, content
// changed} resolve to: no-op, overwrite, relocate, or add-then-remove-old.
// It reports whether any file operation took place.
func (d *DataElement) UpdateFile(ctx context.Context, newPath, source string) (bool, error) {
	oldPath := d.record.GetDataPath()
	if newPath == "" {
		// an omitted path keeps the stored one
		if source == "" {
			return false, nil
		}
		if oldPath == "" {
			return false, fmt.Errorf("%w: no data path for new contents", ErrInvalidPath)
		}
		newPath = oldPath
	}
	if oldPath == "" && source == "" {
		// no stored file and no new contents: record the path only
		d.record.SetDataPath(newPath)
		return false, nil
	}
	pathChanged := newPath != oldPath

	contentChanged := false
	if source != "" {
		sum, err := checksumLocalFile(source)
		if err != nil {
			return false, err
		}
		contentChanged = sum != d.record.GetChecksum()
	}

	switch {
	case !pathChanged && !contentChanged:
		return false, nil
	case !pathChanged && contentChanged:
		return true, d.AddFile(ctx, source, newPath)
	case pathChanged && !contentChanged:
		return true, d.MoveFile(ctx, newPath)
	default:
		if err := d.AddFile(ctx, source, newPath); err != nil {
			return false, err
		}
		if oldPath == "" {
			return true, nil
		}
		return true, d.RemoveFile(ctx, oldPath)
	}
}

// Encrypt transforms the record's file and index with the cipher, removes
// the plaintext files, and rewrites checksum and data path with the
// encryption suffix. Non-genomic and already-encrypted records are skipped.
func (d *DataElement) Encrypt(ctx context.Context, cipher Cipher) error {
	if !d.isGenomic() {
		return nil
	}
	dataPath := d.record.GetDataPath()
	if dataPath == "" {
		return fmt.Errorf("%w: record has no data path", ErrInvalidPath)
	}
	if genomics.IsEncrypted(dataPath) {
		return nil
	}
	files := []string{dataPath}
	if idx, ok := genomics.IndexPath(dataPath); ok {
		if exists, err := d.store.Exists(ctx, idx); err == nil && exists {
			files = append(files, idx)
		}
	}
	for _, f := range files {
		if err := d.transform(ctx, f, genomics.AddEncryptionSuffix(f), cipher.Encrypt); err != nil {
			return fmt.Errorf("encrypt %s: %w", f, err)
		}
		if err := d.store.Remove(ctx, f); err != nil {
			return err
		}
	}
	encryptedPath := genomics.AddEncryptionSuffix(dataPath)
	sum, err := d.checksumStored(ctx, encryptedPath)
	if err != nil {
		return err
	}
	d.record.SetChecksum(sum)
	d.record.SetDataPath(encryptedPath)
	return nil
}

// Decrypt reverses Encrypt for records whose data path carries the
// encryption suffix; all other records are skipped.
func (d *DataElement) Decrypt(ctx context.Context, cipher Cipher) error {
	dataPath := d.record.GetDataPath()
	if !genomics.IsEncrypted(dataPath) {
		return nil
	}
	decryptedPath := genomics.TrimEncryptionSuffix(dataPath)
	files := []string{dataPath}
	if idx, ok := genomics.IndexPath(decryptedPath); ok {
		encIdx := genomics.AddEncryptionSuffix(idx)
		if exists, err := d.store.Exists(ctx, encIdx); err == nil && exists {
			files = append(files, encIdx)
		}
	}
	for _, f := range files {
		if err := d.transform(ctx, f, genomics.TrimEncryptionSuffix(f), cipher.Decrypt); err != nil {
			return fmt.Errorf("decrypt %s: %w", f, err)
		}
		if err := d.store.Remove(ctx, f); err != nil {
			return err
		}
	}
	sum, err := d.checksumStored(ctx, decryptedPath)
	if err != nil {
		return err
	}
	d.record.SetChecksum(sum)
	d.record.SetDataPath(decryptedPath)
	return nil
}

// transform streams a stored file through fn into a new stored file.
func (d *DataElement) transform(ctx context.Context, inPath, outPath string, fn func(io.Writer, io.Reader) error) error {
	in, err := d.store.Open(ctx, inPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(fn(pw, in))
	}()
	if err := d.store.Put(ctx, pr, outPath); err != nil {
		_ = pr.CloseWithError(err)
		return err
	}
	return nil
}
