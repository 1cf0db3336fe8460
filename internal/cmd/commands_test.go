package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreybo/r2-file-manager/pkg/output"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/provider/memory"
)

func TestLs_Table(t *testing.T) {
	_, base := memoryBucket(t, map[string]string{
		"a/.keep":   "",
		"a/x.png":   "png",
		"top.txt":   "hello",
		"b/c/d.txt": "d",
	})

	out, err := runCLI(t, withArgs(base, "ls")...)
	require.NoError(t, err)
	assert.Contains(t, out, "a/")
	assert.Contains(t, out, "b/")
	assert.Contains(t, out, "top.txt")
	assert.NotContains(t, out, "x.png")
	assert.NotContains(t, out, ".keep")
	assert.Contains(t, out, "2 folders, 1 files")

	out, err = runCLI(t, withArgs(base, "ls", "/a")...)
	require.NoError(t, err)
	assert.Contains(t, out, "x.png")
	assert.NotContains(t, out, ".keep")
}

func TestLs_JSONLAndShallowAgree(t *testing.T) {
	_, base := memoryBucket(t, map[string]string{
		"a/.keep":   "",
		"a/x.png":   "png",
		"a/y/z.txt": "z",
	})

	collect := func(args ...string) ([]output.FolderRecord, []output.ObjectRecord, output.SummaryRecord) {
		out, err := runCLI(t, withArgs(base, args...)...)
		require.NoError(t, err)
		recs := jsonlRecords(t, out)
		sums := recordsOfType[output.SummaryRecord](t, recs, output.TypeSummary)
		require.Len(t, sums, 1)
		return recordsOfType[output.FolderRecord](t, recs, output.TypeFolder),
			recordsOfType[output.ObjectRecord](t, recs, output.TypeObject),
			sums[0]
	}

	folders, objects, sum := collect("ls", "/a", "-o", "jsonl")
	require.Len(t, folders, 1)
	assert.Equal(t, "/a/y", folders[0].Path)
	require.Len(t, objects, 1)
	assert.Equal(t, "a/x.png", objects[0].Key)
	assert.Equal(t, int64(3), sum.Bytes)
	assert.Equal(t, "ls", sum.Op)

	sFolders, sObjects, sSum := collect("ls", "/a", "-o", "jsonl", "--shallow")
	assert.Equal(t, folders, sFolders)
	require.Len(t, sObjects, 1)
	assert.Equal(t, objects[0].Key, sObjects[0].Key)
	assert.Equal(t, sum.Bytes, sSum.Bytes)
}

func TestLs_Errors(t *testing.T) {
	_, base := memoryBucket(t, map[string]string{"a/.keep": ""})

	_, err := runCLI(t, withArgs(base, "ls", "/missing")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "ls", "/a//b")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "ls", "-o", "xml")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}

func TestLs_StoreFailure(t *testing.T) {
	_, base := memoryBucket(t, nil, memory.WithHook(func(op memory.Op, key string) error {
		if op == memory.OpList {
			return provider.ErrThrottled
		}
		return nil
	}))

	_, err := runCLI(t, withArgs(base, "ls")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, exitCode(t, err))
}

func TestMkdir(t *testing.T) {
	p, base := memoryBucket(t, nil)

	out, err := runCLI(t, withArgs(base, "mkdir", "-p", "/a/b/c")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/.keep", "a/b/.keep", "a/b/c/.keep"}, p.Keys())
	assert.Equal(t, 3, strings.Count(out, "created "))

	_, err = runCLI(t, withArgs(base, "mkdir", "/docs/my:dir")...)
	require.NoError(t, err)
	assert.Contains(t, p.Keys(), "docs/my_dir/.keep")
	assert.NotContains(t, p.Keys(), "docs/.keep")

	_, err = runCLI(t, withArgs(base, "mkdir", "/")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}

func TestRm_File(t *testing.T) {
	p, base := memoryBucket(t, map[string]string{"a/x.png": "x", "a/y.png": "y"})

	out, err := runCLI(t, withArgs(base, "rm", "/a/x.png")...)
	require.NoError(t, err)
	assert.Contains(t, out, "a/x.png")
	assert.Equal(t, []string{"a/y.png"}, p.Keys())

	_, err = runCLI(t, withArgs(base, "rm", "/a/gone.png")...)
	require.NoError(t, err)
}

func TestRm_Recursive(t *testing.T) {
	p, base := memoryBucket(t, map[string]string{
		"a/.keep":   "",
		"a/b/x.png": "x",
		"ab/keep":   "k",
	})

	out, err := runCLI(t, withArgs(base, "rm", "-r", "/a", "-o", "jsonl")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab/keep"}, p.Keys())

	muts := recordsOfType[output.MutationRecord](t, jsonlRecords(t, out), output.TypeMutation)
	require.Len(t, muts, 2)
	for _, m := range muts {
		assert.True(t, m.OK)
		assert.Equal(t, output.OpDelete, m.Op)
	}
}

func TestRm_RootForbidden(t *testing.T) {
	p, base := memoryBucket(t, map[string]string{"a/x.png": "x"})

	for _, args := range [][]string{{"rm", "-r", "/"}, {"rm", "/"}} {
		_, err := runCLI(t, withArgs(base, args...)...)
		require.Error(t, err)
		assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
	}
	assert.Empty(t, p.CallsFor(memory.OpDelete))
}

func TestRm_PartialFailure(t *testing.T) {
	p, base := memoryBucket(t, map[string]string{"a/1": "", "a/2": ""}, memory.WithHook(func(op memory.Op, key string) error {
		if op == memory.OpDelete && key == "a/2" {
			return provider.ErrAccessDenied
		}
		return nil
	}))

	out, err := runCLI(t, withArgs(base, "rm", "-r", "/a")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileWriteError, exitCode(t, err))
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "ACCESS_DENIED")
	assert.Equal(t, []string{"a/2"}, p.Keys())
}

func writeLocal(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
}

func TestUpload_DirectoryToFileBackend(t *testing.T) {
	local := t.TempDir()
	writeLocal(t, local, map[string]string{
		"site/index.html":  "<html>",
		"site/css/a.css":   "body{}",
		"site/.env":        "SECRET=1",
		"site/tmp/x.tmp":   "x",
		"site/img/logo.sv": "svg",
	})
	bucket := t.TempDir()

	out, err := runCLI(t,
		"--backend", "file", "--base-dir", bucket,
		"upload", filepath.Join(local, "site"), "--to", "/www",
		"--exclude", "**/tmp",
	)
	require.NoError(t, err, out)

	for _, key := range []string{
		"www/site/.keep",
		"www/site/index.html",
		"www/site/css/.keep",
		"www/site/css/a.css",
		"www/site/img/logo.sv",
	} {
		_, statErr := os.Stat(filepath.Join(bucket, filepath.FromSlash(key)))
		assert.NoError(t, statErr, key)
	}
	_, statErr := os.Stat(filepath.Join(bucket, "www", "site", ".env"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(bucket, "www", "site", "tmp"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Contains(t, out, "upload: ")
	assert.Contains(t, out, "0 failed")
}

func TestUpload_FilesWithPublicHost(t *testing.T) {
	local := t.TempDir()
	writeLocal(t, local, map[string]string{"a.txt": "aaa", "b.txt": "bb"})
	p, base := memoryBucket(t, nil)

	out, err := runCLI(t, withArgs(base,
		"upload", filepath.Join(local, "a.txt"), filepath.Join(local, "b.txt"),
		"--to", "/docs", "--public-host", "cdn.example.com", "-o", "jsonl",
	)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt", "docs/b.txt"}, p.Keys())

	recs := jsonlRecords(t, out)
	muts := recordsOfType[output.MutationRecord](t, recs, output.TypeMutation)
	require.Len(t, muts, 2)
	assert.Equal(t, "https://cdn.example.com/docs/a.txt", muts[0].PublicURL)
	assert.Equal(t, int64(3), muts[0].Size)

	sums := recordsOfType[output.SummaryRecord](t, recs, output.TypeSummary)
	require.Len(t, sums, 1)
	assert.Equal(t, int64(2), sums[0].Succeeded)
	assert.Equal(t, int64(5), sums[0].Bytes)
}

func TestUpload_TooLargeIsPartial(t *testing.T) {
	local := t.TempDir()
	writeLocal(t, local, map[string]string{"small.txt": "ok", "big.txt": "0123456789"})
	p, base := memoryBucket(t, nil)

	out, err := runCLI(t, withArgs(base,
		"upload", filepath.Join(local, "small.txt"), filepath.Join(local, "big.txt"),
		"--max-size", "4B",
	)...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileWriteError, exitCode(t, err))
	assert.Contains(t, out, "FILE_TOO_LARGE")
	assert.Equal(t, []string{"small.txt"}, p.Keys())
}

func TestUpload_BadInputs(t *testing.T) {
	_, base := memoryBucket(t, nil)

	_, err := runCLI(t, withArgs(base, "upload", filepath.Join(t.TempDir(), "nope.txt"))...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "upload", t.TempDir(), "--to", "/a//b")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "upload", t.TempDir(), "--include", "[")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}

func TestURL(t *testing.T) {
	_, base := memoryBucket(t, map[string]string{"a/x.png": "x"})
	bucket := base[3]

	out, err := runCLI(t, withArgs(base, "url", "/a/x.png", "--ttl", "15m")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "memory://"+bucket+"/a/x.png?expires="), out)

	out, err = runCLI(t, withArgs(base, "url", "a/x.png", "-o", "jsonl")...)
	require.NoError(t, err)
	urls := recordsOfType[output.URLRecord](t, jsonlRecords(t, out), output.TypeURL)
	require.Len(t, urls, 1)
	assert.Equal(t, "a/x.png", urls[0].Key)
	assert.False(t, urls[0].ExpiresAt.IsZero())
}

func TestURL_Errors(t *testing.T) {
	_, base := memoryBucket(t, map[string]string{"a/x.png": "x"})

	_, err := runCLI(t, withArgs(base, "url", "/a/missing.png")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "url", "/a/x.png", "--ttl", "200h")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))

	_, err = runCLI(t, withArgs(base, "url", "/")...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}
