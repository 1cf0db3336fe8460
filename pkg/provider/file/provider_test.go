package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/pkg/provider"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return p
}

func put(t *testing.T, p *Provider, key, body string) {
	t.Helper()
	require.NoError(t, p.PutObject(context.Background(), key, strings.NewReader(body), int64(len(body)), ""))
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{BaseDir: "  "}.Validate())
	assert.NoError(t, Config{BaseDir: "/tmp"}.Validate())
}

func TestProvider_PutHeadGet(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	put(t, p, "a/b/c.txt", "hello")

	meta, err := p.Head(ctx, "a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)

	body, n, err := p.GetObject(ctx, "a/b/c.txt")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", string(data))

	_, err = p.Head(ctx, "a/b")
	assert.True(t, provider.IsNotFound(err), "directories are not objects")
}

func TestProvider_PutShortBodyLeavesNothing(t *testing.T) {
	p := newTestProvider(t)
	err := p.PutObject(context.Background(), "x.txt", strings.NewReader("ab"), 5, "")
	require.Error(t, err)

	_, err = p.Head(context.Background(), "x.txt")
	assert.True(t, provider.IsNotFound(err))

	entries, err := os.ReadDir(p.baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be cleaned up")
}

func TestProvider_ListPrefixAndPagination(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	for _, k := range []string{"docs/a.txt", "docs/b.txt", "docs2/c.txt", "img/d.png"} {
		put(t, p, k, "x")
	}

	res, err := p.List(ctx, provider.ListOptions{Prefix: "docs/"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.False(t, res.IsTruncated)

	res, err = p.List(ctx, provider.ListOptions{Prefix: "docs"})
	require.NoError(t, err)
	assert.Len(t, res.Objects, 3, "partial segment prefix matches like S3")

	res, err = p.List(ctx, provider.ListOptions{MaxKeys: 3})
	require.NoError(t, err)
	require.Len(t, res.Objects, 3)
	assert.True(t, res.IsTruncated)

	res, err = p.List(ctx, provider.ListOptions{MaxKeys: 3, ContinuationToken: res.ContinuationToken})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "img/d.png", res.Objects[0].Key)
}

func TestProvider_ListWithDelimiter(t *testing.T) {
	p := newTestProvider(t)
	for _, k := range []string{"a/.keep", "a/b/x.png", "a/y.png"} {
		put(t, p, k, "x")
	}

	res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{Prefix: "a/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/"}, res.CommonPrefixes)
	require.Len(t, res.Objects, 2)
}

func TestProvider_DeletePrunesEmptyDirs(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	put(t, p, "a/b/c.txt", "x")

	require.NoError(t, p.DeleteObject(ctx, "a/b/c.txt"))
	require.NoError(t, p.DeleteObject(ctx, "a/b/c.txt"))

	_, err := os.Stat(filepath.Join(p.baseDir, "a"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(p.baseDir)
	assert.NoError(t, err, "base dir survives")
}

func TestProvider_RejectsTraversal(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.fullPath("../etc/passwd")
	assert.NoError(t, err, "leading .. is clamped to the base dir")

	_, err = p.fullPath("")
	assert.Error(t, err)
}

func TestProvider_PresignGet(t *testing.T) {
	p := newTestProvider(t)
	url, err := p.PresignGet(context.Background(), "a/b.png", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "/a/b.png"))
}
