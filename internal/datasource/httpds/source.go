package httpds

import (
	"context"
	"io"
)

// Source is a datasource.Source that downloads one URL.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to c. A nil client gets NewClient(Config{}).
func NewSource(c *Client, url string) *Source {
	if c == nil {
		c = NewClient(Config{})
	}
	return &Source{client: c, url: url}
}

// Name implements datasource.Source.
func (s *Source) Name() string { return FilenameFromURL(s.url) }

// Open implements datasource.Source.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.client.Fetch(ctx, s.url)
}
