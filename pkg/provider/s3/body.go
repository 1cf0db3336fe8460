package s3

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DefaultSpoolMemoryBytes is the largest body buffered in memory to make a
// non-seekable upload seekable. Larger bodies are spooled to a temp file.
const DefaultSpoolMemoryBytes int64 = 16 << 20

// seekableBody is an upload body the SDK can rewind for signing and retries.
type seekableBody struct {
	reader  io.ReadSeeker
	cleanup func() error
}

func (b *seekableBody) Close() error {
	if b.cleanup == nil {
		return nil
	}
	return b.cleanup()
}

// newSeekableBody returns src as-is when it already seeks; otherwise it
// buffers up to maxMemory bytes in memory and spools anything larger.
// A negative size means unknown and always spools.
func newSeekableBody(src io.Reader, size, maxMemory int64) (*seekableBody, error) {
	if rs, ok := src.(io.ReadSeeker); ok {
		return &seekableBody{reader: rs}, nil
	}
	if maxMemory <= 0 {
		maxMemory = DefaultSpoolMemoryBytes
	}

	if size >= 0 && size <= maxMemory {
		data, err := io.ReadAll(io.LimitReader(src, size))
		if err != nil {
			return nil, err
		}
		return &seekableBody{reader: bytes.NewReader(data)}, nil
	}

	f, err := os.CreateTemp("", "r2fm-put-*")
	if err != nil {
		return nil, err
	}
	remove := func() error {
		name := f.Name()
		closeErr := f.Close()
		rmErr := os.Remove(name)
		if closeErr != nil {
			return fmt.Errorf("close spool file: %w", closeErr)
		}
		if rmErr != nil {
			return fmt.Errorf("remove spool file: %w", rmErr)
		}
		return nil
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = remove()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = remove()
		return nil, err
	}
	return &seekableBody{reader: f, cleanup: remove}, nil
}
