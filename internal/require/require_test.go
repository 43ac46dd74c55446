package require

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `--- !define
REQUIRE_REPO_REV: 42
--- !require
some.iid:
  version: "1.2.3"
  guid: 11111111-2222-3333-4444-555555555555
  require_by: [other.iid]
other.iid:
  version: "0.1.0"
`

func TestParseReadsBothDocuments(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.RepoRev != 42 {
		t.Fatalf("RepoRev = %d, want 42", doc.RepoRev)
	}
	if len(doc.Requirements) != 2 {
		t.Fatalf("got %d requirements, want 2", len(doc.Requirements))
	}
	entry, ok := doc.Requirements["some.iid"]
	if !ok {
		t.Fatal("missing some.iid")
	}
	if entry.Version != "1.2.3" || entry.GUID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.RequireBy) != 1 || entry.RequireBy[0] != "other.iid" {
		t.Fatalf("unexpected require_by: %+v", entry.RequireBy)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	doc := &Document{
		RepoRev: 7,
		Requirements: map[string]Entry{
			"a.iid": {Version: "1.0.0"},
		},
	}
	path := filepath.Join(t.TempDir(), "require.yaml")
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RepoRev != 7 {
		t.Fatalf("RepoRev = %d, want 7", got.RepoRev)
	}
	if got.Requirements["a.iid"].Version != "1.0.0" {
		t.Fatalf("unexpected round trip: %+v", got.Requirements)
	}
}

func TestToItemsCarriesVersionAndGUID(t *testing.T) {
	doc := &Document{Requirements: map[string]Entry{
		"x.iid": {Version: "2.0.0", GUID: "11111111-2222-3333-4444-555555555555"},
	}}
	items := ToItems(doc)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.Key != "x.iid" || it.Version != "2.0.0" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if len(it.Guids) != 1 || it.Guids[0] != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected guids: %+v", it.Guids)
	}
}

func TestLoaderReturnsRepoRevFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "require.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	load := Loader(path)
	items, repoRev, err := load("some.iid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if repoRev != 42 {
		t.Fatalf("repoRev = %d, want 42", repoRev)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}
