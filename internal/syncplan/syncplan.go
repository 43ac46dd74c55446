// Package syncplan diffs a remote file map against the local cache and
// produces the download and archive-reassembly work a sync needs to do
// (spec.md §4.5). It consumes internal/filemap trees and internal/iid
// sources, and is grounded on the same explicit-stack, no-recursion style
// filemap.Tree.Walk already established in internal/filemap.
package syncplan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/instl-engine/instl/internal/filemap"
	"github.com/instl-engine/instl/internal/iid"
)

// SourceKindMismatchError is returned when a resolved source's kind
// disagrees with the node found at its path (e.g. !file naming a
// directory).
type SourceKindMismatchError struct {
	Path string
	Kind iid.SourceKind
	Node filemap.Kind
}

func (e *SourceKindMismatchError) Error() string {
	return fmt.Sprintf("source %q declared as %s but remote map has kind %q", e.Path, e.Kind, e.Node)
}

// SourcePathMissingError is returned when a source path (and no matching
// wtar split parts) exists anywhere in the remote map.
type SourcePathMissingError struct {
	Path string
}

func (e *SourcePathMissingError) Error() string {
	return fmt.Sprintf("source path %q not found in remote map", e.Path)
}

// PlannedItem is one resolved install item's sources, already filtered to
// the active OS selection by the caller (normally the index store).
type PlannedItem struct {
	IID     string
	Sources []iid.Source
}

// DownloadTask is one file that needs fetching.
type DownloadTask struct {
	IID      string
	Path     string
	URL      string
	Revision int
	Checksum string
}

// UnwtarTask is one archive-reassembly step following a download.
type UnwtarTask struct {
	Path     string
	HighCost bool // true for .wtar.aa: concatenate split parts before expanding
}

// Plan is the output of Plan: the subtree of remote that is required,
// the downloads that subtree needs, and the unwtar steps that follow them.
type Plan struct {
	WorkMap   *filemap.Tree
	Downloads []DownloadTask
	Unwtars   []UnwtarTask
}

// wtarSplitPart matches a split archive part's filename given a leaf name,
// e.g. "foo.wtar" or "foo.wtar.aa" (spec.md §4.5 step 2).
func wtarSplitPart(leaf string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(leaf) + `\.wtar(\.[a-z][a-z])?$`)
}

func splitParentLeaf(path string) (parent, leaf string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// Compute computes the sync work for remote given the resolved install
// set and the local cache state in have. remote is mutated (Required
// flags are cleared and reset); have is read only.
func Compute(remote, have *filemap.Tree, items []PlannedItem, revision int, syncBaseURL string) (*Plan, error) {
	remote.ClearRequired()

	for _, item := range items {
		for _, src := range item.Sources {
			if err := requireSource(remote, src); err != nil {
				return nil, err
			}
		}
	}

	work := cloneRequiredSubtree(remote)

	plan := &Plan{WorkMap: work}
	err := work.Walk(filemap.WalkFile, func(path string, n *filemap.Node) error {
		haveNode, _ := have.GetItemAtPath(path)
		if needsDownload(path, n, haveNode, have) {
			plan.Downloads = append(plan.Downloads, DownloadTask{
				Path:     path,
				Revision: revision,
				Checksum: n.Checksum,
				URL:      fmt.Sprintf("%s/%d/%s", syncBaseURL, revision, path),
			})
		}
		if strings.HasSuffix(path, ".wtar") {
			plan.Unwtars = append(plan.Unwtars, UnwtarTask{Path: path})
		} else if wtarAAPattern.MatchString(path) {
			plan.Unwtars = append(plan.Unwtars, UnwtarTask{Path: path, HighCost: true})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updateHaveMap(have, work)

	return plan, nil
}

var wtarAAPattern = regexp.MustCompile(`\.wtar\.aa$`)

func requireSource(remote *filemap.Tree, src iid.Source) error {
	path, _, _ := iid.NormalizeSourcePath(src.Path)
	node, ok := remote.GetItemAtPath(path)
	if ok {
		switch src.Kind {
		case iid.KindFile:
			if node.Kind != filemap.KindFile {
				return &SourceKindMismatchError{Path: path, Kind: src.Kind, Node: node.Kind}
			}
			return remote.SetRequired(path, filemap.RequireSingle)
		case iid.KindDir, iid.KindDirCont:
			return remote.SetRequired(path, filemap.RequireAll)
		case iid.KindFiles:
			return remote.SetRequired(path, filemap.RequireFilesOnly)
		default:
			return fmt.Errorf("unknown source kind %q", src.Kind)
		}
	}

	return requireWtarFallback(remote, path)
}

// requireWtarFallback handles the case where path itself is absent but its
// parent directory holds split wtar archive parts for it (§4.5 step 2).
func requireWtarFallback(remote *filemap.Tree, path string) error {
	parentPath, leaf := splitParentLeaf(path)
	var parent *filemap.Node
	if parentPath == "" {
		parent = remote.Root
	} else {
		p, ok := remote.GetItemAtPath(parentPath)
		if !ok {
			return &SourcePathMissingError{Path: path}
		}
		parent = p
	}

	pattern := wtarSplitPart(leaf)
	found := false
	for name, child := range parent.Children {
		if pattern.MatchString(name) && child.Kind == filemap.KindFile {
			childPath := name
			if parentPath != "" {
				childPath = parentPath + "/" + name
			}
			if err := remote.SetRequired(childPath, filemap.RequireSingle); err != nil {
				return err
			}
			found = true
		}
	}
	if !found {
		return &SourcePathMissingError{Path: path}
	}
	return nil
}

// cloneRequiredSubtree returns a new tree containing only the nodes marked
// Required in src, preserving structure (spec.md §4.5 step 3).
func cloneRequiredSubtree(src *filemap.Tree) *filemap.Tree {
	dst := filemap.New()
	src.Walk(filemap.WalkAny, func(path string, n *filemap.Node) error {
		if !n.Required {
			return nil
		}
		attrs := filemap.Node{
			Kind:     n.Kind,
			Revision: n.Revision,
			Checksum: n.Checksum,
			Size:     n.Size,
			Required: true,
			Flags:    cloneFlags(n.Flags),
		}
		_, err := dst.NewItemAtPath(path, attrs, true)
		return err
	})
	return dst
}

// needsDownload applies the three conditions of §4.5 step 3.
func needsDownload(path string, remoteNode, haveNode *filemap.Node, have *filemap.Tree) bool {
	if haveNode == nil {
		return true
	}
	if haveNode.Checksum != remoteNode.Checksum {
		return true
	}
	if strings.HasSuffix(path, ".wtar") {
		expandedPath := strings.TrimSuffix(path, ".wtar")
		if _, ok := have.GetItemAtPath(expandedPath); !ok {
			return true
		}
	}
	return false
}

// updateHaveMap copies every required node's revision, checksum, and flags
// from work into have so a future run can skip unchanged files
// (spec.md §4.5 step 6). The caller is responsible for writing have
// atomically once the sync that produced it has fully succeeded.
func updateHaveMap(have *filemap.Tree, work *filemap.Tree) {
	work.Walk(filemap.WalkAny, func(path string, n *filemap.Node) error {
		if existing, ok := have.GetItemAtPath(path); ok {
			existing.Revision = n.Revision
			existing.Checksum = n.Checksum
			existing.Size = n.Size
			existing.Flags = cloneFlags(n.Flags)
			return nil
		}
		attrs := filemap.Node{
			Kind:     n.Kind,
			Revision: n.Revision,
			Checksum: n.Checksum,
			Size:     n.Size,
			Required: true,
			Flags:    cloneFlags(n.Flags),
		}
		_, err := have.NewItemAtPath(path, attrs, true)
		return err
	})
}

func cloneFlags(src map[filemap.Flag]bool) map[filemap.Flag]bool {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[filemap.Flag]bool, len(src))
	for f, v := range src {
		dst[f] = v
	}
	return dst
}
