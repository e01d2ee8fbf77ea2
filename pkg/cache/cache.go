package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"

	kerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Cache closes over how we interact with cached experiment content. Names are
// slash-separated keys relative to the cache root, like pr-1/results.json.
type Cache interface {
	Loader
	Storer
}

// Loader closes over how we load cached data
type Loader interface {
	Load(ctx context.Context, name string) (io.ReadCloser, error)
}

// Storer closes over how we store cached data
type Storer interface {
	Store(ctx context.Context, name string) (io.WriteCloser, error)
}

// BucketCache keeps content in a GCS bucket, so that several analysts can share downloads.
type BucketCache struct {
	Bucket *storage.BucketHandle
}

var _ Cache = &BucketCache{}

func (b *BucketCache) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	handle := b.Bucket.Object(name)
	rc, err := handle.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		err = notExist{wrapped: err}
	}
	return rc, err
}

// Store uploads the object when the writer is closed. A failed write cancels
// the upload, so no partial object is created.
func (b *BucketCache) Store(ctx context.Context, name string) (io.WriteCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	handle := b.Bucket.Object(name)
	return &bucketWriter{WriteCloser: handle.NewWriter(ctx), cancel: cancel}, nil
}

type bucketWriter struct {
	io.WriteCloser
	cancel context.CancelFunc
}

func (w *bucketWriter) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	if err != nil {
		w.cancel()
	}
	return n, err
}

func (w *bucketWriter) Close() error {
	defer w.cancel()
	return w.WriteCloser.Close()
}

// LocalCache keeps content in a directory, by default ./results.
type LocalCache struct {
	Dir string
}

var _ Cache = &LocalCache{}

func (l *LocalCache) Load(_ context.Context, name string) (io.ReadCloser, error) {
	rc, err := os.Open(path.Join(l.Dir, name))
	if os.IsNotExist(err) {
		err = notExist{wrapped: err}
	}
	return rc, err
}

// Store writes to a temporary file next to the entry, which only replaces the
// entry once the writer is closed after every write succeeded.
func (l *LocalCache) Store(_ context.Context, name string) (io.WriteCloser, error) {
	cachePath := path.Join(l.Dir, name)
	if err := os.MkdirAll(filepath.Dir(cachePath), 0777); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(cachePath), "."+filepath.Base(cachePath)+".*")
	if err != nil {
		return nil, fmt.Errorf("could not create temporary cache file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("could not set permissions on temporary cache file: %w", err)
	}
	return &fileWriter{file: tmp, target: cachePath}, nil
}

type fileWriter struct {
	file   *os.File
	target string
	failed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		w.failed = true
	}
	return n, err
}

func (w *fileWriter) Close() error {
	closeErr := w.file.Close()
	if w.failed || closeErr != nil {
		if err := os.Remove(w.file.Name()); err != nil && !os.IsNotExist(err) {
			return kerrors.NewAggregate([]error{closeErr, fmt.Errorf("could not remove temporary cache file: %w", err)})
		}
		if closeErr != nil {
			return closeErr
		}
		return fmt.Errorf("discarded %s after a failed write", w.target)
	}
	if err := os.Rename(w.file.Name(), w.target); err != nil {
		_ = os.Remove(w.file.Name())
		return fmt.Errorf("could not move cached data into place: %w", err)
	}
	return nil
}

// notExist closes over the different ways in which storage libraries may expose a nonexistent file
type notExist struct {
	wrapped error
}

func (e notExist) Error() string {
	return e.wrapped.Error()
}

func (e notExist) Is(err error) bool {
	_, ok := err.(notExist)
	return ok // we don't care what we're wrapping, all notExist are equivalent
}

func (e notExist) Unwrap() error {
	return e.wrapped
}

// IsNotExist determines if the error means the cache holds no entry for the name.
func IsNotExist(err error) bool {
	return errors.Is(err, notExist{})
}

// Read loads the full content cached under the name.
func Read(ctx context.Context, loader Loader, name string) ([]byte, error) {
	reader, err := loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	data, readErr := io.ReadAll(reader)
	if err := reader.Close(); err != nil {
		readErr = kerrors.NewAggregate([]error{readErr, fmt.Errorf("could not close reader for cached data: %w", err)})
	}
	return data, readErr
}

// Write stores the full content under the name.
func Write(ctx context.Context, storer Storer, name string, data []byte) error {
	writer, err := storer.Store(ctx, name)
	if err != nil {
		return fmt.Errorf("could not open cache for writing: %w", err)
	}
	var errs []error
	if _, err := writer.Write(data); err != nil {
		errs = append(errs, fmt.Errorf("could not write cached data: %w", err))
	}
	if err := writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("could not close writer for cached data: %w", err))
	}
	return kerrors.NewAggregate(errs)
}
