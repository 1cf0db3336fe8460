package fsview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/pkg/provider/memory"
)

func TestListDirect_AgreesWithProject(t *testing.T) {
	objects := map[string]string{
		"a/b/x.png":   "xx",
		"a/b/c/y.png": "yyy",
		"a/.keep":     "",
		"a/e/.keep":   "",
		"a/z.txt":     "z",
		"d.png":       "d",
	}

	for _, pageSize := range []int{1, 2, 1000} {
		p := memory.New("bucket", memory.WithMaxKeys(pageSize))
		p.Seed(objects)
		snap, err := LoadSnapshot(context.Background(), p)
		require.NoError(t, err)

		for _, folder := range []string{"/", "/a", "/a/b", "/a/b/c", "/a/e"} {
			view, err := Project(snap, folder)
			require.NoError(t, err)

			listing, err := ListDirect(context.Background(), p, folder)
			require.NoError(t, err)

			assert.Equal(t, view.Path, listing.Path)
			assert.Equal(t, view.FolderNames(), listing.Folders, "folders of %s (page %d)", folder, pageSize)
			assert.Equal(t, fileNames(view.DirectFiles), fileNames(listing.Files), "files of %s (page %d)", folder, pageSize)
		}
	}
}

func TestListDirect_InvalidPath(t *testing.T) {
	_, err := ListDirect(context.Background(), memory.New("b"), "/a//b")
	assert.Error(t, err)
}

func TestListDirect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ListDirect(ctx, memory.New("b"), "/")
	assert.ErrorIs(t, err, context.Canceled)
}
