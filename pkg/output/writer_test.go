package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, line []byte, payload any) Record {
	t.Helper()
	var record Record
	require.NoError(t, json.Unmarshal(line, &record))
	require.NoError(t, json.Unmarshal(record.Data, payload))
	return record
}

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	assert.NotNil(t, w)
	assert.Equal(t, "job-123", w.jobID)
	assert.Equal(t, "s3", w.provider)
}

func TestNewJobID(t *testing.T) {
	id := NewJobID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewJobID())
}

func TestJSONLWriter_WriteObject(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	err := w.WriteObject(context.Background(), &ObjectRecord{
		Key:          "a/b/x.png",
		Name:         "x.png",
		Size:         1048576,
		LastModified: ts,
		ParentPath:   "/a/b",
	})
	require.NoError(t, err)

	var obj ObjectRecord
	record := decode(t, buf.Bytes(), &obj)

	assert.Equal(t, TypeObject, record.Type)
	assert.Equal(t, "job-123", record.JobID)
	assert.Equal(t, "s3", record.Provider)
	assert.False(t, record.TS.IsZero())

	assert.Equal(t, "a/b/x.png", obj.Key)
	assert.Equal(t, "/a/b", obj.ParentPath)
	assert.Equal(t, ts, obj.LastModified)
}

func TestJSONLWriter_TypedRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "memory")
	ctx := context.Background()

	require.NoError(t, w.WriteFolder(ctx, &FolderRecord{Path: "/a", Name: "a", Depth: 1}))
	require.NoError(t, w.WriteMutation(ctx, &MutationRecord{Op: OpUpload, Key: "a/x", OK: false, ErrorCode: ErrCodeFileTooLarge}))
	require.NoError(t, w.WriteURL(ctx, &URLRecord{Key: "a/x", PresignedURL: "https://signed"}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeForbidden, Message: "root", Path: "/"}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Op: "rm", Succeeded: 3, Failed: 1}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	var folder FolderRecord
	assert.Equal(t, TypeFolder, decode(t, []byte(lines[0]), &folder).Type)
	assert.Equal(t, 1, folder.Depth)

	var mut MutationRecord
	assert.Equal(t, TypeMutation, decode(t, []byte(lines[1]), &mut).Type)
	assert.Equal(t, ErrCodeFileTooLarge, mut.ErrorCode)

	var u URLRecord
	assert.Equal(t, TypeURL, decode(t, []byte(lines[2]), &u).Type)

	var e ErrorRecord
	assert.Equal(t, TypeError, decode(t, []byte(lines[3]), &e).Type)
	assert.Equal(t, "/", e.Path)

	var sum SummaryRecord
	assert.Equal(t, TypeSummary, decode(t, []byte(lines[4]), &sum).Type)
	assert.Equal(t, int64(3), sum.Succeeded)
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	require.NoError(t, w.Close())

	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	const numWriters = 8
	const writesPerWriter = 50

	var wg sync.WaitGroup
	wg.Add(numWriters)
	for i := range numWriters {
		go func(writerID int) {
			defer wg.Done()
			for j := range writesPerWriter {
				_ = w.WriteMutation(context.Background(), &MutationRecord{
					Op:   OpDelete,
					Key:  "k",
					OK:   true,
					Size: int64(writerID*writesPerWriter + j),
				})
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)
	for i, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record), "line %d should be valid JSON", i)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "s3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteObject(ctx, &ObjectRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

type failingWriter struct{ err error }

func (f *failingWriter) Write(p []byte) (int, error) { return 0, f.err }

type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (int, error) {
	return sw.buf.Write(p[:min(len(p), sw.bytesPerWrite)])
}

type zeroWriteWriter struct{}

func (zeroWriteWriter) Write(p []byte) (int, error) { return 0, nil }

func TestJSONLWriter_WriteFailures(t *testing.T) {
	w := NewJSONLWriter(&failingWriter{err: errors.New("disk full")}, "job", "s3")
	err := w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)

	w = NewJSONLWriter(zeroWriteWriter{}, "job", "s3")
	err = w.WriteObject(context.Background(), &ObjectRecord{Key: "file.txt"})
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	sw := &shortWriteWriter{bytesPerWrite: 7}
	w := NewJSONLWriter(sw, "job-123", "s3")

	require.NoError(t, w.WriteObject(context.Background(), &ObjectRecord{Key: "data/2024/file.parquet", Size: 10}))

	lines := strings.Split(strings.TrimSpace(sw.buf.String()), "\n")
	require.Len(t, lines, 1)
	var obj ObjectRecord
	decode(t, []byte(lines[0]), &obj)
	assert.Equal(t, "data/2024/file.parquet", obj.Key)
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestMutationRecord_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&MutationRecord{Op: OpMkdir, Key: "a/.keep", OK: true})
	require.NoError(t, err)
	s := string(data)
	assert.NotContains(t, s, "error_code")
	assert.NotContains(t, s, "public_url")
	assert.Contains(t, s, `"ok":true`)
}
