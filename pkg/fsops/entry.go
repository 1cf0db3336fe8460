package fsops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
)

// File is one uploadable file. Open may be called more than once.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Dir is a directory that can be read one level at a time.
//
// ReadDir returns the files and subdirectories directly inside the directory.
// Each call restarts the listing, so a traversal can be retried or resumed
// without holding platform iterator state.
type Dir interface {
	Name() string
	ReadDir(ctx context.Context) ([]File, []Dir, error)
}

// MemFile is an in-memory File.
type MemFile struct {
	FileName string
	Data     []byte
	Type     string
}

func (f *MemFile) Name() string        { return f.FileName }
func (f *MemFile) Size() int64         { return int64(len(f.Data)) }
func (f *MemFile) ContentType() string { return f.Type }

func (f *MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// MemDir is an in-memory Dir.
type MemDir struct {
	DirName string
	Files   []File
	Subdirs []Dir
}

func (d *MemDir) Name() string { return d.DirName }

func (d *MemDir) ReadDir(ctx context.Context) ([]File, []Dir, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return d.Files, d.Subdirs, nil
}

// FSDir returns a Dir over directory dir of fsys (for example os.DirFS).
// Symlinks and other irregular entries are skipped.
func FSDir(fsys fs.FS, dir string) Dir {
	return &fsDir{fsys: fsys, dir: path.Clean(dir)}
}

type fsDir struct {
	fsys fs.FS
	dir  string
}

func (d *fsDir) Name() string { return path.Base(d.dir) }

func (d *fsDir) ReadDir(ctx context.Context) ([]File, []Dir, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	entries, err := fs.ReadDir(d.fsys, d.dir)
	if err != nil {
		return nil, nil, err
	}

	var files []File
	var dirs []Dir
	for _, e := range entries {
		p := path.Join(d.dir, e.Name())
		switch {
		case e.IsDir():
			dirs = append(dirs, &fsDir{fsys: d.fsys, dir: p})
		case e.Type().IsRegular():
			info, err := e.Info()
			if err != nil {
				return nil, nil, err
			}
			files = append(files, &fsFile{fsys: d.fsys, path: p, size: info.Size()})
		}
	}
	return files, dirs, nil
}

type fsFile struct {
	fsys fs.FS
	path string
	size int64
}

func (f *fsFile) Name() string { return path.Base(f.path) }
func (f *fsFile) Size() int64  { return f.size }

func (f *fsFile) ContentType() string {
	return mime.TypeByExtension(path.Ext(f.path))
}

func (f *fsFile) Open() (io.ReadCloser, error) {
	return f.fsys.Open(f.path)
}

// FSFile returns a File for one regular file of fsys.
func FSFile(fsys fs.FS, name string) (File, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", name)
	}
	return &fsFile{fsys: fsys, path: name, size: info.Size()}, nil
}

// renamed overrides the name of a File.
type renamed struct {
	File
	name string
}

func (r renamed) Name() string { return r.name }

// NewDirFromPaths builds a Dir named name from files keyed by slash-separated
// relative path ("photos/2024/a.png"). Each file takes the last path segment
// as its name. Used for browser folder drops, which arrive as a flat list of
// relative paths.
func NewDirFromPaths(name string, files map[string]File) (Dir, error) {
	root := &MemDir{DirName: name}
	dirs := map[string]*MemDir{"": root}

	var rels []string
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		clean := strings.TrimPrefix(rel, "/")
		if err := keypath.ValidateKey(clean); err != nil || strings.HasSuffix(clean, "/") {
			return nil, fmt.Errorf("%q: %w", rel, keypath.ErrInvalidPath)
		}
		parent := ensureMemDir(dirs, keypath.Dir(clean))
		parent.Files = append(parent.Files, renamed{File: files[rel], name: keypath.Base(clean)})
	}
	return root, nil
}

func ensureMemDir(dirs map[string]*MemDir, key string) *MemDir {
	if d, ok := dirs[key]; ok {
		return d
	}
	parent := ensureMemDir(dirs, keypath.Dir(key))
	d := &MemDir{DirName: keypath.Base(key)}
	parent.Subdirs = append(parent.Subdirs, d)
	dirs[key] = d
	return d
}
