// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path. "-" reads standard input.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the base name of the path, or "stdin".
func (l *Local) Name() string {
	if l.path == "-" {
		return "stdin"
	}
	return filepath.Base(l.path)
}

// Path returns the path the source was created with.
func (l *Local) Path() string { return l.path }

// Open returns ctx.Err() when the context is already done and otherwise opens
// the file. Errors keep the path and stay matchable with errors.Is, e.g.
// against os.ErrNotExist.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if l.path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
