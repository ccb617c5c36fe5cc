// Package storage writes the mirrored files below the output directory.
//
// The directory itself is created and removed with package os. Files are
// written through a gocloud.dev/blob bucket, which keeps the writes atomic
// and lets tests swap the local bucket for an in-memory one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// ErrNotPrepared is returned by WriteFile before Mkdir succeeded.
var ErrNotPrepared = errors.New("output directory has not been created")

// Store is the filesystem collaborator of the scraper.
type Store interface {
	// Mkdir creates the output directory. It fails if the directory exists.
	Mkdir(ctx context.Context) error
	// WriteFile stores content at name, a slash-separated path relative to
	// the output directory. Missing parent directories are created.
	WriteFile(ctx context.Context, name string, content []byte) error
	// RemoveAll deletes the output directory and everything below it.
	RemoveAll(ctx context.Context) error
}

// Dir is a Store rooted at a local directory.
type Dir struct {
	path string

	mu     sync.Mutex
	bucket *blob.Bucket
}

// NewDir returns a Store for path. Nothing is touched on disk until Mkdir.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the output directory.
func (d *Dir) Path() string {
	return d.path
}

// Mkdir creates the directory and opens the bucket on it.
func (d *Dir) Mkdir(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Mkdir(d.path, 0o750); err != nil {
		return err
	}

	bucket, err := fileblob.OpenBucket(d.path, &fileblob.Options{
		// Mirrored files must not get .attrs sidecar files next to them.
		Metadata: fileblob.MetadataDontWrite,
		// Temporary files live next to their target so the final rename
		// never crosses filesystems.
		NoTempDir: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open bucket on %s: %w", d.path, err)
	}
	d.bucket = bucket
	return nil
}

// WriteFile writes content to name below the directory.
func (d *Dir) WriteFile(ctx context.Context, name string, content []byte) error {
	bucket, err := d.openBucket()
	if err != nil {
		return err
	}
	if err := bucket.WriteAll(ctx, name, content, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadFile returns the content stored at name.
func (d *Dir) ReadFile(ctx context.Context, name string) ([]byte, error) {
	bucket, err := d.openBucket()
	if err != nil {
		return nil, err
	}
	return bucket.ReadAll(ctx, name)
}

// RemoveAll closes the bucket and removes the directory tree.
func (d *Dir) RemoveAll(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bucket != nil {
		_ = d.bucket.Close() //nolint:errcheck // the tree is removed anyway
		d.bucket = nil
	}
	return os.RemoveAll(d.path)
}

// Close releases the bucket. The files stay on disk.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bucket == nil {
		return nil
	}
	err := d.bucket.Close()
	d.bucket = nil
	return err
}

func (d *Dir) openBucket() (*blob.Bucket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bucket == nil {
		return nil, ErrNotPrepared
	}
	return d.bucket, nil
}
