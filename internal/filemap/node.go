// Package filemap implements the in-memory repository tree of spec.md §4.2:
// every node carries path, kind, revision, checksum, size, and a mutable
// "required" flag used by the sync planner. Children are stored as a plain
// name->*Node map (no parent pointers, per spec.md §9) and sorted only at
// serialization time; Walk uses an explicit stack so traversal depth is not
// bounded by the Go call stack on large trees.
package filemap

import (
	"fmt"
	"sort"
)

// Kind is the node type recorded in the file map.
type Kind byte

const (
	KindFile    Kind = 'f'
	KindDir     Kind = 'd'
	KindSymlink Kind = 's'
)

// Flag is an additional per-node attribute (GLOSSARY "x" = executable).
type Flag byte

const (
	FlagExecutable Flag = 'x'
)

// Node is one entry of the repository tree.
type Node struct {
	Name     string
	Kind     Kind
	Revision int
	Checksum string // hex, files only, present iff Kind==KindFile && Revision>0
	Size     int64
	Flags    map[Flag]bool
	Props    map[string]string
	Required bool // transient, set during sync planning

	Children map[string]*Node // nil for non-dir kinds
}

// NewNode creates a Node of the given kind, initializing Children for dirs.
func NewNode(name string, kind Kind) *Node {
	n := &Node{Name: name, Kind: kind, Flags: make(map[Flag]bool)}
	if kind == KindDir {
		n.Children = make(map[string]*Node)
	}
	return n
}

// PathCollisionError is returned by NewItemAtPath when an existing node's
// kind differs from the one being inserted.
type PathCollisionError struct {
	Path         string
	ExistingKind Kind
	NewKind      Kind
}

func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("path collision at %q: existing kind %q, new kind %q", e.Path, e.ExistingKind, e.NewKind)
}

// Tree is the file map root.
type Tree struct {
	Root *Node
}

// New creates an empty Tree with a synthetic root directory.
func New() *Tree {
	return &Tree{Root: NewNode("", KindDir)}
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	return parts
}

// NewItemAtPath inserts attrs as a node at path, optionally creating
// intermediate directories. Fails with PathCollisionError if a node
// already exists at path with a different kind.
func (t *Tree) NewItemAtPath(path string, attrs Node, createFolders bool) (*Node, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	cur := t.Root
	for i, part := range parts[:len(parts)-1] {
		child, ok := cur.Children[part]
		if !ok {
			if !createFolders {
				return nil, fmt.Errorf("missing intermediate directory %q", part)
			}
			child = NewNode(part, KindDir)
			cur.Children[part] = child
		} else if child.Kind != KindDir {
			return nil, &PathCollisionError{Path: joinPath(parts[:i+1]), ExistingKind: child.Kind, NewKind: KindDir}
		}
		cur = child
	}

	leaf := parts[len(parts)-1]
	if existing, ok := cur.Children[leaf]; ok {
		if existing.Kind != attrs.Kind {
			return nil, &PathCollisionError{Path: path, ExistingKind: existing.Kind, NewKind: attrs.Kind}
		}
		return existing, nil
	}

	node := attrs
	node.Name = leaf
	if node.Flags == nil {
		node.Flags = make(map[Flag]bool)
	}
	if node.Kind == KindDir && node.Children == nil {
		node.Children = make(map[string]*Node)
	}
	nodeCopy := node
	cur.Children[leaf] = &nodeCopy
	return &nodeCopy, nil
}

func joinPath(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

// GetItemAtPath returns the node at path, or (nil, false) if absent.
func (t *Tree) GetItemAtPath(path string) (*Node, bool) {
	parts := splitPath(path)
	cur := t.Root
	for _, part := range parts {
		if cur.Children == nil {
			return nil, false
		}
		child, ok := cur.Children[part]
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// WalkWhat filters which kinds Walk visits.
type WalkWhat int

const (
	WalkAny WalkWhat = iota
	WalkFile
	WalkDir
	WalkSymlink
)

func matchesWhat(n *Node, what WalkWhat) bool {
	switch what {
	case WalkFile:
		return n.Kind == KindFile
	case WalkDir:
		return n.Kind == KindDir
	case WalkSymlink:
		return n.Kind == KindSymlink
	default:
		return true
	}
}

// walkFrame is one stack entry: a node plus its lexicographically sorted
// child names and the next index to descend into.
type walkFrame struct {
	node  *Node
	path  string
	names []string
	idx   int
}

// Walk performs a deterministic pre-order traversal (children visited in
// lexicographic order), calling visit(path, node) for every node matching
// what. path is "/"-joined relative to the tree root and does not include
// the synthetic root itself.
func (t *Tree) Walk(what WalkWhat, visit func(path string, n *Node) error) error {
	if t.Root == nil {
		return nil
	}

	stack := []*walkFrame{{node: t.Root, path: "", names: sortedNames(t.Root)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.idx >= len(top.names) {
			stack = stack[:len(stack)-1]
			continue
		}
		name := top.names[top.idx]
		top.idx++
		child := top.node.Children[name]
		childPath := name
		if top.path != "" {
			childPath = top.path + "/" + name
		}

		if matchesWhat(child, what) {
			if err := visit(childPath, child); err != nil {
				return err
			}
		}
		if child.Kind == KindDir {
			stack = append(stack, &walkFrame{node: child, path: childPath, names: sortedNames(child)})
		}
	}
	return nil
}

func sortedNames(n *Node) []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequiredMode selects how SetRequired propagates through a subtree.
type RequiredMode int

const (
	// RequireSingle sets only the node itself.
	RequireSingle RequiredMode = iota
	// RequireFilesOnly sets file children one level deep, not the node
	// itself and not into subdirectories.
	RequireFilesOnly
	// RequireAll sets the node and every descendant.
	RequireAll
)

// SetRequired mutates the Required flag of the subtree rooted at path.
func (t *Tree) SetRequired(path string, mode RequiredMode) error {
	node, ok := t.GetItemAtPath(path)
	if !ok {
		return fmt.Errorf("no node at path %q", path)
	}

	switch mode {
	case RequireSingle:
		node.Required = true
	case RequireFilesOnly:
		for _, child := range node.Children {
			if child.Kind == KindFile {
				child.Required = true
			}
		}
	case RequireAll:
		var setAll func(n *Node)
		setAll = func(n *Node) {
			n.Required = true
			for _, c := range n.Children {
				setAll(c)
			}
		}
		setAll(node)
	}
	return nil
}

// ClearRequired resets Required to false throughout the tree (sync
// planner §4.5 step 1: "Clear required throughout remote_map").
func (t *Tree) ClearRequired() {
	var clear func(n *Node)
	clear = func(n *Node) {
		n.Required = false
		for _, c := range n.Children {
			clear(c)
		}
	}
	clear(t.Root)
}

// RemoveUnrequired performs a depth-first purge of nodes whose Required is
// false, removing a directory only once its subtree is empty after purge.
func (t *Tree) RemoveUnrequired() {
	var purge func(n *Node)
	purge = func(n *Node) {
		for name, child := range n.Children {
			if child.Kind == KindDir {
				purge(child)
				if len(child.Children) == 0 && !child.Required {
					delete(n.Children, name)
				}
				continue
			}
			if !child.Required {
				delete(n.Children, name)
			}
		}
	}
	purge(t.Root)
}
