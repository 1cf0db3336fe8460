package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/pkg/provider"
)

func TestProvider_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	p := New("bucket")

	require.NoError(t, p.PutObject(ctx, "a/b.txt", strings.NewReader("hello"), 5, "text/plain"))

	meta, err := p.Head(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	assert.Equal(t, "text/plain", meta.ContentType)

	body, n, err := p.GetObject(ctx, "a/b.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, p.DeleteObject(ctx, "a/b.txt"))
	require.NoError(t, p.DeleteObject(ctx, "a/b.txt"), "deleting a missing key is not an error")

	_, err = p.Head(ctx, "a/b.txt")
	assert.True(t, provider.IsNotFound(err))
}

func TestProvider_ShortBody(t *testing.T) {
	p := New("bucket")
	err := p.PutObject(context.Background(), "k", strings.NewReader("abc"), 10, "")
	require.Error(t, err)
	assert.Empty(t, p.Keys())
}

func TestProvider_ListPaginates(t *testing.T) {
	ctx := context.Background()
	p := New("bucket", WithMaxKeys(2))
	p.Seed(map[string]string{"a/1": "", "a/2": "", "a/3": "", "b/1": ""})

	var keys []string
	err := provider.ListAll(ctx, p, "a/", func(page []provider.ObjectSummary) error {
		assert.LessOrEqual(t, len(page), 2)
		for _, o := range page {
			keys = append(keys, o.Key)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)
	assert.Len(t, p.CallsFor(OpList), 2)
}

func TestProvider_ListWithDelimiter(t *testing.T) {
	p := New("bucket")
	p.Seed(map[string]string{"a/.keep": "", "a/b/x.png": "xx", "a/y.png": "y", "top.txt": "t"})

	res, err := p.ListWithDelimiter(context.Background(), provider.ListWithDelimiterOptions{Prefix: "a/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/"}, res.CommonPrefixes)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "a/.keep", res.Objects[0].Key)
	assert.Equal(t, "a/y.png", res.Objects[1].Key)
}

func TestProvider_HookFailsWithoutMutating(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	p := New("bucket", WithHook(func(op Op, key string) error {
		if op == OpPut && key == "bad" {
			return boom
		}
		return nil
	}))

	require.NoError(t, p.PutObject(ctx, "good", strings.NewReader(""), 0, ""))
	err := p.PutObject(ctx, "bad", strings.NewReader(""), 0, "")
	require.ErrorIs(t, err, boom)

	var pe *provider.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.ProviderMemory, pe.Provider)

	assert.Equal(t, []string{"good"}, p.Keys())
	assert.Equal(t, []string{"good", "bad"}, p.CallsFor(OpPut))
}

func TestProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New("bucket")

	err := p.DeleteObject(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Calls())
}

func TestProvider_PresignGet(t *testing.T) {
	fixed := time.Unix(1000, 0)
	p := New("assets", WithClock(func() time.Time { return fixed }))

	url, err := p.PresignGet(context.Background(), "a/b.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://assets/a/b.png?expires=1060", url)
}
