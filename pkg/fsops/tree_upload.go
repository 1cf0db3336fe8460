package fsops

import (
	"context"
	"slices"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
)

// PathFilter selects entries of a local tree by their slash-separated path
// relative to the uploaded directory's parent ("photos/2024/a.png").
type PathFilter interface {
	Allow(rel string, isDir bool) bool
}

// TreeOptions configures UploadTree.
type TreeOptions struct {
	// Filter drops files and prunes directories. Nil uploads everything.
	Filter PathFilter
}

type treeLevel struct {
	dir       Dir
	folderKey string
	rel       string
}

// UploadTree uploads root and everything below it as folder root.Name()
// under parentPath.
//
// Levels are processed from an explicit work stack. For each directory the
// marker is written first, then the directory's files are uploaded
// concurrently, and only then are its subdirectories queued, so a nested
// folder's marker and files are always written after its ancestors' markers.
// A failed marker, directory read or file is recorded and the walk goes on.
// The context is checked between levels; once it is done, remaining levels
// are recorded as failures.
//
// The result always lists per-unit outcomes; the error is BatchResult.Err.
func (u *Uploader) UploadTree(ctx context.Context, root Dir, parentPath string, opts TreeOptions) (*BatchResult, error) {
	parentKey, err := keypath.ToKey(parentPath)
	if err != nil {
		return nil, err
	}
	rootName, err := keypath.SanitizeFolderName(root.Name())
	if err != nil {
		return nil, err
	}

	res := &BatchResult{Op: OpUpload}
	stack := []treeLevel{{dir: root, folderKey: keypath.JoinKey(parentKey, rootName), rel: rootName}}

	for len(stack) > 0 {
		lvl := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			res.Fail(keypath.JoinKey(lvl.folderKey, keypath.MarkerName), err)
			for _, rest := range stack {
				res.Fail(keypath.JoinKey(rest.folderKey, keypath.MarkerName), err)
			}
			break
		}

		if marker, err := u.putMarker(ctx, lvl.folderKey); err != nil {
			res.Fail(marker, err)
		} else {
			res.Markers = append(res.Markers, marker)
			res.Succeeded++
		}

		files, dirs, err := lvl.dir.ReadDir(ctx)
		if err != nil {
			res.Fail(lvl.folderKey+keypath.Separator, err)
			continue
		}

		if opts.Filter != nil {
			files = slices.DeleteFunc(slices.Clone(files), func(f File) bool {
				return !opts.Filter.Allow(lvl.rel+keypath.Separator+f.Name(), false)
			})
		}
		u.putLevel(ctx, files, keypath.ToPath(lvl.folderKey), res)

		// Push in reverse so subdirectories are visited in listed order.
		for i := len(dirs) - 1; i >= 0; i-- {
			d := dirs[i]
			name, err := keypath.SanitizeFolderName(d.Name())
			if err != nil {
				res.Fail(keypath.JoinKey(lvl.folderKey, d.Name()), err)
				continue
			}
			rel := lvl.rel + keypath.Separator + name
			if opts.Filter != nil && !opts.Filter.Allow(rel, true) {
				continue
			}
			stack = append(stack, treeLevel{dir: d, folderKey: keypath.JoinKey(lvl.folderKey, name), rel: rel})
		}
	}

	return res, res.Err()
}
