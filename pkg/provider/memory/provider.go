// Package memory implements an in-process bucket.
//
// It backs tests and the serve command's demo mode. Every call is recorded in
// order, and a Hook can fail selected calls to simulate a flaky remote.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// Op names a recorded provider call.
type Op string

const (
	OpList    Op = "List"
	OpListDir Op = "ListWithDelimiter"
	OpHead    Op = "Head"
	OpGet     Op = "GetObject"
	OpPut     Op = "PutObject"
	OpDelete  Op = "DeleteObject"
	OpPresign Op = "PresignGet"
)

// Call is one recorded provider invocation.
type Call struct {
	Op  Op
	Key string
}

// Hook runs before each call. A non-nil error fails the call without
// touching stored state.
type Hook func(op Op, key string) error

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Provider is a concurrency-safe in-memory provider.Store.
type Provider struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]object
	calls   []Call
	hook    Hook
	now     func() time.Time
	maxKeys int
}

var _ provider.Store = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithHook installs a failure-injection hook.
func WithHook(h Hook) Option {
	return func(p *Provider) { p.hook = h }
}

// WithClock overrides the modification-time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithMaxKeys sets the default page size. Small values exercise pagination.
func WithMaxKeys(n int) Option {
	return func(p *Provider) { p.maxKeys = n }
}

// New creates an empty bucket.
func New(bucket string, opts ...Option) *Provider {
	p := &Provider{
		bucket:  bucket,
		objects: map[string]object{},
		now:     time.Now,
		maxKeys: 1000,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Seed stores objects directly, bypassing hooks and call recording.
func (p *Provider) Seed(objects map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range objects {
		p.objects[k] = object{data: []byte(v), modified: p.now()}
	}
}

// SetHook replaces the failure-injection hook.
func (p *Provider) SetHook(h Hook) {
	p.mu.Lock()
	p.hook = h
	p.mu.Unlock()
}

// Keys returns every stored key in lexical order.
func (p *Provider) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.objects))
	for k := range p.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []Call {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Call(nil), p.calls...)
}

// CallsFor returns recorded keys for one operation, in call order.
func (p *Provider) CallsFor(op Op) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var keys []string
	for _, c := range p.calls {
		if c.Op == op {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// ResetCalls clears the call log.
func (p *Provider) ResetCalls() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

func (p *Provider) Close() error { return nil }

// enter records the call and runs the hook. The caller must hold p.mu.
func (p *Provider) enter(ctx context.Context, op Op, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.calls = append(p.calls, Call{Op: op, Key: key})
	if p.hook != nil {
		if err := p.hook(op, key); err != nil {
			return p.wrapError(string(op), key, err)
		}
	}
	return nil
}

func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpList, opts.Prefix); err != nil {
		return nil, err
	}
	objects, token, truncated := p.page(opts.Prefix, opts.ContinuationToken, opts.MaxKeys)
	return &provider.ListResult{Objects: objects, ContinuationToken: token, IsTruncated: truncated}, nil
}

func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpListDir, opts.Prefix); err != nil {
		return nil, err
	}
	objects, token, truncated := p.page(opts.Prefix, opts.ContinuationToken, opts.MaxKeys)
	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = "/"
	}
	direct, prefixes := provider.SplitByDelimiter(objects, opts.Prefix, delimiter)
	return &provider.ListWithDelimiterResult{
		Objects:           direct,
		CommonPrefixes:    prefixes,
		ContinuationToken: token,
		IsTruncated:       truncated,
	}, nil
}

func (p *Provider) page(prefix, after string, maxKeys int) ([]provider.ObjectSummary, string, bool) {
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}
	var keys []string
	for k := range p.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	truncated := len(keys) > maxKeys
	if truncated {
		keys = keys[:maxKeys]
	}
	objects := make([]provider.ObjectSummary, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, p.summary(k))
	}
	if truncated {
		return objects, keys[len(keys)-1], true
	}
	return objects, "", false
}

func (p *Provider) summary(key string) provider.ObjectSummary {
	o := p.objects[key]
	return provider.ObjectSummary{
		Key:          key,
		Size:         int64(len(o.data)),
		ETag:         fmt.Sprintf("%x", len(o.data)),
		LastModified: o.modified,
	}
}

func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpHead, key); err != nil {
		return nil, err
	}
	o, ok := p.objects[key]
	if !ok {
		return nil, p.wrapError("Head", key, provider.ErrNotFound)
	}
	return &provider.ObjectMeta{ObjectSummary: p.summary(key), ContentType: o.contentType}, nil
}

func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpGet, key); err != nil {
		return nil, 0, err
	}
	o, ok := p.objects[key]
	if !ok {
		return nil, 0, p.wrapError("GetObject", key, provider.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(o.data)), int64(len(o.data)), nil
}

// PutObject reads the body before taking the lock so slow readers do not
// serialize unrelated calls.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	var data []byte
	if body != nil {
		var err error
		data, err = io.ReadAll(body)
		if err != nil {
			return p.wrapError("PutObject", key, err)
		}
	}
	if contentLength >= 0 && int64(len(data)) != contentLength {
		return p.wrapError("PutObject", key, fmt.Errorf("short body: read %d of %d bytes", len(data), contentLength))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpPut, key); err != nil {
		return err
	}
	p.objects[key] = object{data: data, contentType: contentType, modified: p.now()}
	return nil
}

func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpDelete, key); err != nil {
		return err
	}
	delete(p.objects, key)
	return nil
}

// PresignGet returns a memory:// URL carrying the expiry as a query parameter.
func (p *Provider) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(ctx, OpPresign, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", p.bucket, key, p.now().Add(ttl).Unix()), nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	return &provider.ProviderError{Op: op, Provider: provider.ProviderMemory, Bucket: p.bucket, Key: key, Err: err}
}
