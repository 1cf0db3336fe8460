// Package tree infers a folder hierarchy from a flat set of object keys.
//
// The bucket has no directories. A folder exists when some key lives under it,
// either real content or a marker object. Build derives the whole hierarchy
// from the complete key set on every call; nothing is cached.
package tree

import (
	"fmt"
	"sort"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
)

// Node is one inferred folder.
type Node struct {
	Name     string  `json:"name" yaml:"name"`
	Path     string  `json:"path" yaml:"path"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Orphan records a key or path that could not be attached to the tree.
type Orphan struct {
	Key    string `json:"key,omitempty"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

// Result is the output of Build.
type Result struct {
	Root    *Node
	Orphans []Orphan

	index map[string]*Node
}

// Build reconstructs the folder tree from every key in the bucket.
//
// Candidate folder paths are collected from each key's parent chain, sorted
// by depth (then lexically) and attached to their parents through a path
// index, so a parent always exists before its children. Paths whose parent
// cannot be found, and keys that are not valid object keys, are reported in
// Orphans and skipped.
func Build(keys []string) *Result {
	root := &Node{Name: "", Path: keypath.Root}
	res := &Result{
		Root:  root,
		index: map[string]*Node{keypath.Root: root},
	}

	candidates := map[string]struct{}{}
	for _, key := range keys {
		if err := keypath.ValidateKey(key); err != nil {
			res.Orphans = append(res.Orphans, Orphan{Key: key, Reason: err.Error()})
			continue
		}
		for _, p := range keypath.ParentChain(key) {
			candidates[p] = struct{}{}
		}
	}

	paths := make([]string, 0, len(candidates))
	for p := range candidates {
		if p != keypath.Root {
			paths = append(paths, p)
		}
	}
	sortByDepth(paths)

	for _, p := range paths {
		if _, exists := res.index[p]; exists {
			continue
		}
		parentPath := keypath.Parent(p)
		parent, ok := res.index[parentPath]
		if !ok {
			res.Orphans = append(res.Orphans, Orphan{
				Path:   p,
				Reason: fmt.Sprintf("parent %s not found", parentPath),
			})
			continue
		}
		node := &Node{Name: keypath.Base(p), Path: p}
		parent.Children = append(parent.Children, node)
		res.index[p] = node
	}

	return res
}

// sortByDepth orders paths by segment count, then lexically.
func sortByDepth(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		di, dj := keypath.Depth(paths[i]), keypath.Depth(paths[j])
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
}

// Find returns the node at path, or nil.
func (r *Result) Find(path string) *Node {
	if r == nil {
		return nil
	}
	if r.index != nil {
		return r.index[path]
	}
	return Find(r.Root, path)
}

// Len returns the number of folders in the tree, the root included.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.index)
}

// Find resolves a path in the tree (recursive).
func Find(root *Node, path string) *Node {
	if root == nil {
		return nil
	}
	if root.Path == path {
		return root
	}
	for _, child := range root.Children {
		if found := Find(child, path); found != nil {
			return found
		}
	}
	return nil
}

// Count counts all nodes in a tree.
func Count(root *Node) int {
	if root == nil {
		return 0
	}
	count := 1
	for _, child := range root.Children {
		count += Count(child)
	}
	return count
}

// Flatten returns all nodes in a flat map keyed by path.
func Flatten(root *Node) map[string]*Node {
	result := make(map[string]*Node)
	if root == nil {
		return result
	}
	Walk(root, func(n *Node, _ int) bool {
		result[n.Path] = n
		return true
	})
	return result
}

// Walk visits nodes depth-first in child order. fn receives the node depth
// (root is 0); returning false skips that node's children.
func Walk(root *Node, fn func(n *Node, depth int) bool) {
	if root == nil {
		return
	}
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.depth) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}
