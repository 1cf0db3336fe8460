package metrics

import (
	"context"
	"io"
	"time"

	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// instrumentedStore records every call of the wrapped store.
type instrumentedStore struct {
	next provider.Store
}

// InstrumentStore wraps s so every call is counted and timed. A NotFound
// from Head or DeleteObject is an expected answer and counts as success.
func InstrumentStore(s provider.Store) provider.Store {
	return &instrumentedStore{next: s}
}

func observe(op string, start time.Time, err error) {
	RecordStoreOperation(op, time.Since(start), err == nil || provider.IsNotFound(err))
}

func (s *instrumentedStore) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	start := time.Now()
	res, err := s.next.List(ctx, opts)
	observe("list", start, err)
	return res, err
}

func (s *instrumentedStore) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	start := time.Now()
	res, err := s.next.ListWithDelimiter(ctx, opts)
	observe("list_delimiter", start, err)
	return res, err
}

func (s *instrumentedStore) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	start := time.Now()
	meta, err := s.next.Head(ctx, key)
	observe("head", start, err)
	return meta, err
}

func (s *instrumentedStore) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	start := time.Now()
	err := s.next.PutObject(ctx, key, body, contentLength, contentType)
	observe("put", start, err)
	if err == nil {
		RecordBytesUploaded(contentLength)
	}
	return err
}

func (s *instrumentedStore) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()
	body, n, err := s.next.GetObject(ctx, key)
	observe("get", start, err)
	return body, n, err
}

func (s *instrumentedStore) DeleteObject(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.DeleteObject(ctx, key)
	observe("delete", start, err)
	return err
}

func (s *instrumentedStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := s.next.PresignGet(ctx, key, ttl)
	observe("presign", start, err)
	return url, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
