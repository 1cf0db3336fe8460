// Package file implements a provider backed by a local directory.
//
// Keys are slash-separated relative paths under BaseDir. This backend exists
// for development and offline use of the file manager; it mirrors bucket
// semantics (flat keys, no empty directories) rather than filesystem ones.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// Provider implements provider.Store for local filesystem paths.
type Provider struct {
	baseDir string
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider        = (*Provider)(nil)
	_ provider.DelimiterLister = (*Provider)(nil)
	_ provider.ObjectGetter    = (*Provider)(nil)
	_ provider.ObjectPutter    = (*Provider)(nil)
	_ provider.ObjectDeleter   = (*Provider)(nil)
	_ provider.Presigner       = (*Provider)(nil)
)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := filepath.Clean(cfg.BaseDir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Bucket: base, Err: err}
	}
	return &Provider{baseDir: base}, nil
}

func (p *Provider) Close() error { return nil }

func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	objects, token, truncated, err := p.page(ctx, opts.Prefix, opts.ContinuationToken, opts.MaxKeys)
	if err != nil {
		return nil, p.wrapError("List", opts.Prefix, err)
	}
	return &provider.ListResult{Objects: objects, ContinuationToken: token, IsTruncated: truncated}, nil
}

// ListWithDelimiter derives one level from the flat listing. Pagination is
// applied before grouping, so a page may repeat a common prefix seen earlier;
// callers de-duplicate prefixes.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	objects, token, truncated, err := p.page(ctx, opts.Prefix, opts.ContinuationToken, opts.MaxKeys)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}
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

func (p *Provider) page(ctx context.Context, prefix, after string, maxKeys int) ([]provider.ObjectSummary, string, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", false, err
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys, err := p.collectKeys(prefix)
	if err != nil {
		return nil, "", false, err
	}
	sort.Strings(keys)

	start := 0
	if after != "" {
		// Start strictly after the last returned key.
		start = sort.SearchStrings(keys, after)
		for start < len(keys) && keys[start] <= after {
			start++
		}
	}

	end := min(start+maxKeys, len(keys))

	objects := make([]provider.ObjectSummary, 0, end-start)
	for _, k := range keys[start:end] {
		full, err := p.fullPath(k)
		if err != nil {
			continue
		}
		st, err := os.Stat(full)
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, provider.ObjectSummary{Key: k, Size: st.Size(), LastModified: st.ModTime()})
	}

	if end < len(keys) {
		return objects, keys[end-1], true, nil
	}
	return objects, "", false, nil
}

func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderFile, Key: key, Err: provider.ErrNotFound}
	}

	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{Key: strings.TrimPrefix(key, "/"), Size: st.Size(), LastModified: st.ModTime()},
	}, nil
}

func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	return f, st.Size(), nil
}

// PutObject writes to a temp file and renames it into place so readers never
// see a partial object. Content type is not persisted.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	_ = ctx
	_ = contentType
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".r2fm-put-*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if contentLength >= 0 && n != contentLength {
		return p.wrapError("PutObject", key, fmt.Errorf("short body: wrote %d of %d bytes", n, contentLength))
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// DeleteObject removes the file and prunes directories left empty, so the
// directory layout never implies folders the key set does not.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	_ = ctx
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return p.wrapError("DeleteObject", key, err)
	}
	for dir := filepath.Dir(full); dir != p.baseDir && strings.HasPrefix(dir, p.baseDir); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// PresignGet returns a file:// URL. Local files carry no expiry.
func (p *Provider) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	_ = ttl
	full, err := p.fullPath(key)
	if err != nil {
		return "", p.wrapError("PresignGet", key, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String(), nil
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

// collectKeys walks the directory that contains prefix and keeps keys that
// start with it, so partial-segment prefixes behave like S3.
func (p *Provider) collectKeys(prefix string) ([]string, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	root := p.baseDir
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		root = filepath.Join(p.baseDir, filepath.FromSlash(prefix[:i]))
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".r2fm-put-") {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			keys = append(keys, rel)
		}
		return nil
	})
	return keys, err
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to provider sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = provider.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
