package fsview

import (
	"context"
	"sort"
	"strings"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// Listing is a one-level folder listing obtained with a delimiter query.
type Listing struct {
	Path    string       `json:"path" yaml:"path"`
	Folders []string     `json:"folders" yaml:"folders"`
	Files   []FileRecord `json:"files" yaml:"files"`
}

// ListDirect lists one folder level using the store's delimiter listing.
//
// It pages until exhausted. Common prefixes become folder names; markers and
// folder placeholders are dropped from files. For a folder with content the
// result matches Project on a fresh snapshot; an empty marker-only child is
// reported through its common prefix the same way.
func ListDirect(ctx context.Context, l provider.DelimiterLister, folderPath string) (*Listing, error) {
	prefix, err := keypath.FolderPrefix(folderPath)
	if err != nil {
		return nil, err
	}

	out := &Listing{Path: keypath.ToPath(strings.TrimSuffix(prefix, keypath.Separator)), Folders: []string{}, Files: []FileRecord{}}
	seen := map[string]struct{}{}
	var token string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := l.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
			Prefix:            prefix,
			Delimiter:         keypath.Separator,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}

		for _, cp := range res.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), keypath.Separator)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out.Folders = append(out.Folders, name)
		}
		for _, o := range res.Objects {
			if isFile(o.Key) {
				out.Files = append(out.Files, NewFileRecord(o))
			}
		}

		if !res.IsTruncated || res.ContinuationToken == "" {
			break
		}
		token = res.ContinuationToken
	}

	sort.Strings(out.Folders)
	sortFiles(out.Files)
	return out, nil
}
