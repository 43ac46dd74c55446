// Package iid models the install item (IID): a declarative unit describing
// sources, target folders, dependencies and action hooks, with per-OS
// variants and multi-parent inheritance (spec.md §3).
//
// Per-OS state is expressed as pure data (OSTag -> Bag) rather than the
// original engine's per-OS default-dict with an ambient "current OS" stack
// (spec.md §9's redesign note); Effective folds ancestors and active OSes
// into one Bag and is memoized on (iid, active-OS set).
package iid

import (
	"fmt"
	"regexp"
)

// OSTag is one of the per-OS bag selectors named in spec.md §3.
type OSTag string

const (
	Common OSTag = "common"
	Mac    OSTag = "Mac"
	Mac32  OSTag = "Mac32"
	Mac64  OSTag = "Mac64"
	Win    OSTag = "Win"
	Win32  OSTag = "Win32"
	Win64  OSTag = "Win64"
)

// ValidOSTags enumerates the per-OS bag selectors the index store accepts.
var ValidOSTags = map[OSTag]bool{
	Common: true, Mac: true, Mac32: true, Mac64: true, Win: true, Win32: true, Win64: true,
}

// SourceKind is one of the four ways an install_sources entry selects what
// to copy (GLOSSARY "source kind").
type SourceKind string

const (
	KindFile    SourceKind = "!file"
	KindFiles   SourceKind = "!files"
	KindDir     SourceKind = "!dir"
	KindDirCont SourceKind = "!dir_cont"
)

// Source is one entry of install_sources: a path plus how much of it to
// select (spec.md §3).
type Source struct {
	Path string
	Kind SourceKind
}

// ActionPhase is one of the pre/post hook points of spec.md §3.
type ActionPhase string

const (
	PreCopy              ActionPhase = "pre_copy"
	PreCopyToFolder      ActionPhase = "pre_copy_to_folder"
	PreCopyItem          ActionPhase = "pre_copy_item"
	PostCopyItem         ActionPhase = "post_copy_item"
	PostCopyToFolder     ActionPhase = "post_copy_to_folder"
	PostCopy             ActionPhase = "post_copy"
	PreRemove            ActionPhase = "pre_remove"
	PreRemoveFromFolder  ActionPhase = "pre_remove_from_folder"
	PreRemoveItem        ActionPhase = "pre_remove_item"
	RemoveItem           ActionPhase = "remove_item"
	PostRemoveItem       ActionPhase = "post_remove_item"
	PostRemoveFromFolder ActionPhase = "post_remove_from_folder"
	PostRemove           ActionPhase = "post_remove"
	PreDoit              ActionPhase = "pre_doit"
	Doit                 ActionPhase = "doit"
	PostDoit             ActionPhase = "post_doit"
)

// Bag is the set of per-OS attributes of one IID: its sources, target
// folders, dependency references, and action-phase command lists.
// Order within each slice is significant (insertion order, §3 invariant d).
type Bag struct {
	Sources []Source
	Folders []string
	Depends []string // iid or guid references
	Actions map[ActionPhase][]string
}

func newBag() *Bag {
	return &Bag{Actions: make(map[ActionPhase][]string)}
}

// clone returns a deep copy so folding ancestors never mutates a shared Bag.
func (b *Bag) clone() *Bag {
	c := newBag()
	c.Sources = append(c.Sources, b.Sources...)
	c.Folders = append(c.Folders, b.Folders...)
	c.Depends = append(c.Depends, b.Depends...)
	for phase, cmds := range b.Actions {
		c.Actions[phase] = append([]string(nil), cmds...)
	}
	return c
}

// appendFrom appends other's entries after this bag's own, skipping
// duplicate sources/folders/depends/actions already present (the
// "set-union... preserving first-insertion order" of invariant d).
func (b *Bag) appendFrom(other *Bag) {
	haveSource := make(map[Source]bool, len(b.Sources))
	for _, s := range b.Sources {
		haveSource[s] = true
	}
	for _, s := range other.Sources {
		if !haveSource[s] {
			b.Sources = append(b.Sources, s)
			haveSource[s] = true
		}
	}

	haveFolder := make(map[string]bool, len(b.Folders))
	for _, f := range b.Folders {
		haveFolder[f] = true
	}
	for _, f := range other.Folders {
		if !haveFolder[f] {
			b.Folders = append(b.Folders, f)
			haveFolder[f] = true
		}
	}

	haveDep := make(map[string]bool, len(b.Depends))
	for _, d := range b.Depends {
		haveDep[d] = true
	}
	for _, d := range other.Depends {
		if !haveDep[d] {
			b.Depends = append(b.Depends, d)
			haveDep[d] = true
		}
	}

	for phase, cmds := range other.Actions {
		existing := make(map[string]bool, len(b.Actions[phase]))
		for _, c := range b.Actions[phase] {
			existing[c] = true
		}
		for _, c := range cmds {
			if !existing[c] {
				b.Actions[phase] = append(b.Actions[phase], c)
				existing[c] = true
			}
		}
	}
}

// Item is one install item (IID), keyed by Key.
type Item struct {
	Key         string
	Name        string
	Remark      string
	Description string
	Guids       []string
	InheritFrom []string // ordered, unique iids
	Version     string

	PerOS map[OSTag]*Bag

	// LastRequireRepoRev is the revision this IID was last required at
	// (spec.md §3 "Lifecycle"). indexstore.Store.ReadRequireNode stamps it
	// with the require file's repo revision; the sync planner does not
	// update it.
	LastRequireRepoRev int

	// UserData is an opaque slot for the resolver (spec.md §3).
	UserData any
}

// NewItem creates an Item with an empty per-OS bag map.
func NewItem(key string) *Item {
	return &Item{Key: key, PerOS: make(map[OSTag]*Bag)}
}

// Bag returns (creating if absent) the mutable bag for os on this item.
func (it *Item) Bag(os OSTag) *Bag {
	b, ok := it.PerOS[os]
	if !ok {
		b = newBag()
		it.PerOS[os] = b
	}
	return b
}

var guidPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)

// LooksLikeGUID reports whether s has the 36-character UUID shape named in
// the GLOSSARY, without requiring the google/uuid RFC4122 version/variant
// bits (index guids are opaque aliases, not necessarily generated UUIDs).
func LooksLikeGUID(s string) bool {
	return guidPattern.MatchString(s)
}

// NormalizeSourcePath applies the leading-character rules of invariant (e):
// paths starting with "/" are absolute (the "/" is stripped from the
// returned path and isAbs is true), paths starting with "$(" are
// variable-rooted (isVar is true), otherwise the path is left untouched
// for the caller to prefix with $(SOURCE_PREFIX).
func NormalizeSourcePath(path string) (result string, isAbs, isVar bool) {
	switch {
	case len(path) > 0 && path[0] == '/':
		return path[1:], true, false
	case len(path) >= 2 && path[:2] == "$(":
		return path, false, true
	default:
		return path, false, false
	}
}

func (s Source) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Path)
}
