// Package keypath converts between logical folder paths and object keys.
//
// A logical path always starts with "/" and "/" is the root. An object key is
// the same path without the leading slash; the root maps to the empty key.
// All functions are pure.
package keypath

import (
	"errors"
	"strings"
)

// Separator is the key segment delimiter.
const Separator = "/"

// Root is the logical path of the bucket root.
const Root = "/"

// ErrInvalidPath indicates a malformed logical path or key.
var ErrInvalidPath = errors.New("invalid path")

// ToKey converts a logical path to an object key.
//
// The leading slash is stripped and one trailing slash is normalized away.
// An all-slash path maps to "" (the root). Empty segments ("a//b") and the
// dot segments "." and ".." are rejected with ErrInvalidPath.
//
// Examples:
//
//	"/"           → ""
//	"/a/b/c.png"  → "a/b/c.png"
//	"/a/b/"       → "a/b"
//	"a/b"         → "a/b"
//	"/a//b"       → ErrInvalidPath
func ToKey(logicalPath string) (string, error) {
	if logicalPath == "" {
		return "", ErrInvalidPath
	}
	if strings.Trim(logicalPath, Separator) == "" {
		return "", nil
	}

	key := strings.TrimPrefix(logicalPath, Separator)
	key = strings.TrimSuffix(key, Separator)
	if err := checkSegments(key); err != nil {
		return "", err
	}
	return key, nil
}

// ToPath converts an object key to a logical path. A trailing slash on a
// folder key is dropped and the empty key maps to the root.
func ToPath(key string) string {
	key = strings.TrimSuffix(key, Separator)
	return Root + key
}

// ValidateKey reports whether key is a usable object key: non-empty, no
// leading slash, no doubled slash. A single trailing slash (a folder
// placeholder written by other tools) is allowed.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, Separator) {
		return ErrInvalidPath
	}
	return checkSegments(strings.TrimSuffix(key, Separator))
}

func checkSegments(key string) error {
	for seg := range strings.SplitSeq(key, Separator) {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// ParentChain returns the logical paths of every folder that contains key,
// root first.
//
//	"a/b/c.png" → ["/", "/a", "/a/b"]
//	"d.png"     → ["/"]
//
// A key ending in "/" names a folder itself, so "a/b/" yields
// ["/", "/a", "/a/b"].
func ParentChain(key string) []string {
	chain := []string{Root}
	if key == "" || key == Separator {
		return chain
	}

	segments := strings.Split(strings.TrimSuffix(key, Separator), Separator)
	folders := segments[:len(segments)-1]
	if strings.HasSuffix(key, Separator) {
		folders = segments
	}

	var b strings.Builder
	for _, seg := range folders {
		b.WriteString(Separator)
		b.WriteString(seg)
		chain = append(chain, b.String())
	}
	return chain
}

// Parent returns the logical path of the folder containing path.
// The parent of the root is the root.
func Parent(path string) string {
	path = strings.TrimSuffix(path, Separator)
	i := strings.LastIndex(path, Separator)
	if i <= 0 {
		return Root
	}
	return path[:i]
}

// Base returns the last segment of a key or path.
func Base(key string) string {
	key = strings.TrimSuffix(key, Separator)
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Dir returns the key of the folder containing key, "" for root-level keys.
func Dir(key string) string {
	key = strings.TrimSuffix(key, Separator)
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[:i]
	}
	return ""
}

// Join appends name to a logical folder path.
func Join(folderPath, name string) string {
	folderPath = strings.TrimSuffix(folderPath, Separator)
	return folderPath + Separator + name
}

// JoinKey appends name to a folder key. The root key omits the separator.
func JoinKey(folderKey, name string) string {
	if folderKey == "" {
		return name
	}
	return folderKey + Separator + name
}

// Depth returns the number of segments in a logical path; the root is 0.
func Depth(path string) int {
	trimmed := strings.Trim(path, Separator)
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, Separator) + 1
}

// FolderPrefix returns the listing prefix for everything under a folder:
// the folder key plus a trailing slash, or "" for the root.
func FolderPrefix(folderPath string) (string, error) {
	key, err := ToKey(folderPath)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", nil
	}
	return key + Separator, nil
}

// IsRoot reports whether path denotes the bucket root.
func IsRoot(path string) bool {
	return path != "" && strings.Trim(path, Separator) == ""
}
