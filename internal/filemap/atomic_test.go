package filemap

import (
	"path/filepath"
	"testing"
)

func TestWriteAtomicReadAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "have_map.txt")

	tree := New()
	tree.NewItemAtPath("a.txt", Node{Kind: KindFile, Revision: 1, Checksum: "abc"}, true)

	if err := tree.WriteAtomic(path, nil); err != nil {
		t.Fatalf("WriteAtomic() error: %v", err)
	}

	read, _, err := ReadAtomic(path)
	if err != nil {
		t.Fatalf("ReadAtomic() error: %v", err)
	}
	if n, ok := read.GetItemAtPath("a.txt"); !ok || n.Checksum != "abc" {
		t.Errorf("round-tripped node = %+v ok=%v", n, ok)
	}
}

func TestReadAtomicMissingFileReturnsEmptyTree(t *testing.T) {
	dir := t.TempDir()
	tree, comments, err := ReadAtomic(filepath.Join(dir, "missing.txt"))
	if err != nil {
		t.Fatalf("ReadAtomic() on missing file: %v", err)
	}
	if tree == nil || len(tree.Root.Children) != 0 || comments != nil {
		t.Errorf("expected empty tree for missing have_map, got %+v", tree)
	}
}
