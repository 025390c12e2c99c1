// Package datasource defines where input bytes come from (local files, HTTP,
// uploaded readers) and enforces the input size ceiling before any parsing.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTooLarge is returned when a source yields more than the allowed bytes.
var ErrTooLarge = errors.New("datasource: input exceeds size limit")

// Source opens a named stream of input bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name is a display name, usually a file name, used for extension checks
	// and reporting.
	Name() string
}

// ReadLimited reads the whole source, failing with ErrTooLarge when it holds
// more than limit bytes. A limit <= 0 disables the check.
func ReadLimited(ctx context.Context, src Source, limit int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, src.Name(), limit)
	}
	return b, nil
}

// readerSource adapts an already-open reader, e.g. a multipart upload.
type readerSource struct {
	name string
	r    io.Reader
}

// FromReader wraps r as a Source named name. Open may be called once.
func FromReader(name string, r io.Reader) Source { return &readerSource{name: name, r: r} }

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.r == nil {
		return nil, errors.New("datasource: reader already consumed")
	}
	r := s.r
	s.r = nil
	if rc, ok := r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r), nil
}

// FromString is FromReader over an in-memory string.
func FromString(name, text string) Source { return FromReader(name, strings.NewReader(text)) }
