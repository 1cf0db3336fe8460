// Package fsview projects a bucket snapshot into per-folder views.
//
// A snapshot is one full, delimiter-less listing of the bucket plus the folder
// tree inferred from it. Views are pure functions of a snapshot; after any
// mutation callers load a new snapshot rather than patching an old one.
package fsview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/tree"
)

// FileRecord is the presentation shape of one stored object.
// Marker objects never become FileRecords.
type FileRecord struct {
	Name       string    `json:"name" yaml:"name"`
	Key        string    `json:"key" yaml:"key"`
	Size       int64     `json:"size" yaml:"size"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`
	ParentPath string    `json:"parent_path" yaml:"parent_path"`
}

// NewFileRecord builds a FileRecord from a listed object.
func NewFileRecord(obj provider.ObjectSummary) FileRecord {
	return FileRecord{
		Name:       keypath.Base(obj.Key),
		Key:        obj.Key,
		Size:       obj.Size,
		ModifiedAt: obj.LastModified,
		ParentPath: keypath.ToPath(keypath.Dir(obj.Key)),
	}
}

// isFile reports whether a listed key is a user-visible file: a valid key
// that is neither a marker nor a trailing-slash folder placeholder.
func isFile(key string) bool {
	if keypath.ValidateKey(key) != nil {
		return false
	}
	return !keypath.IsMarker(key) && !strings.HasSuffix(key, keypath.Separator)
}

// Snapshot is the complete object set of a bucket at one point in time.
type Snapshot struct {
	Objects []provider.ObjectSummary
	Tree    *tree.Result
	TakenAt time.Time
}

// LoadSnapshot lists every key in the bucket and builds the folder tree.
func LoadSnapshot(ctx context.Context, p provider.Provider) (*Snapshot, error) {
	var objects []provider.ObjectSummary
	err := provider.ListAll(ctx, p, "", func(page []provider.ObjectSummary) error {
		objects = append(objects, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewSnapshot(objects), nil
}

// NewSnapshot builds a snapshot from an already listed object set.
func NewSnapshot(objects []provider.ObjectSummary) *Snapshot {
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	return &Snapshot{
		Objects: objects,
		Tree:    tree.Build(keys),
		TakenAt: time.Now().UTC(),
	}
}

// TotalBytes sums the size of every file in the snapshot, markers excluded.
func (s *Snapshot) TotalBytes() int64 {
	var total int64
	for _, o := range s.Objects {
		if isFile(o.Key) {
			total += o.Size
		}
	}
	return total
}

// FileCount returns the number of files in the snapshot, markers excluded.
func (s *Snapshot) FileCount() int {
	n := 0
	for _, o := range s.Objects {
		if isFile(o.Key) {
			n++
		}
	}
	return n
}

// View is what belongs directly in one folder.
type View struct {
	Path         string       `json:"path" yaml:"path"`
	ChildFolders []*tree.Node `json:"-" yaml:"-"`
	DirectFiles  []FileRecord `json:"files" yaml:"files"`
	Bytes        int64        `json:"bytes" yaml:"bytes"`
}

// FolderNames returns the names of the view's child folders.
func (v *View) FolderNames() []string {
	names := make([]string, 0, len(v.ChildFolders))
	for _, c := range v.ChildFolders {
		names = append(names, c.Name)
	}
	return names
}

// Project returns the child folders and direct files of folderPath.
//
// A file belongs to a folder when its key with the last segment removed equals
// the folder key exactly; at the root that means the key has no "/" at all.
// Files nested two or more levels down are never included. Asking for a folder
// the tree does not contain fails with provider.ErrNotFound.
func Project(s *Snapshot, folderPath string) (*View, error) {
	folderKey, err := keypath.ToKey(folderPath)
	if err != nil {
		return nil, err
	}
	path := keypath.ToPath(folderKey)

	node := s.Tree.Find(path)
	if node == nil {
		return nil, fmt.Errorf("folder %s: %w", path, provider.ErrNotFound)
	}

	view := &View{Path: path, ChildFolders: node.Children, DirectFiles: []FileRecord{}}
	for _, o := range s.Objects {
		if !isFile(o.Key) || keypath.Dir(o.Key) != folderKey {
			continue
		}
		view.DirectFiles = append(view.DirectFiles, NewFileRecord(o))
		view.Bytes += o.Size
	}
	sortFiles(view.DirectFiles)
	return view, nil
}

func sortFiles(files []FileRecord) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

// Breadcrumb is one step of the navigation trail to a folder.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Breadcrumbs returns the trail from the root to folderPath, root first.
// The root crumb has an empty name.
func Breadcrumbs(folderPath string) ([]Breadcrumb, error) {
	key, err := keypath.ToKey(folderPath)
	if err != nil {
		return nil, err
	}
	crumbs := []Breadcrumb{{Name: "", Path: keypath.Root}}
	if key == "" {
		return crumbs, nil
	}
	path := ""
	for part := range strings.SplitSeq(key, keypath.Separator) {
		path += keypath.Separator + part
		crumbs = append(crumbs, Breadcrumb{Name: part, Path: path})
	}
	return crumbs, nil
}
