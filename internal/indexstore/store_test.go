package indexstore

import (
	"testing"

	"github.com/instl-engine/instl/internal/iid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func itemWithCommonBag(key string, folders, depends []string) *iid.Item {
	it := iid.NewItem(key)
	bag := it.Bag(iid.Common)
	bag.Folders = folders
	bag.Depends = depends
	return it
}

func TestUpsertAndGetAllIIDs(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertItem(itemWithCommonBag("A", []string{"/usr/local"}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertItem(itemWithCommonBag("B", nil, nil)); err != nil {
		t.Fatal(err)
	}

	ids, err := s.GetAllIIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("GetAllIIDs() = %v, want [A B]", ids)
	}
	if !s.HasIID("A") || s.HasIID("nope") {
		t.Errorf("HasIID behaved incorrectly")
	}
}

func TestUpsertReplacesPriorRows(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertItem(itemWithCommonBag("A", []string{"/old"}, nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertItem(itemWithCommonBag("A", []string{"/new"}, nil)); err != nil {
		t.Fatal(err)
	}

	folders, err := s.GetResolvedDetailsValueForIID("A", "folders", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 1 || folders[0] != "/new" {
		t.Errorf("folders = %v, want [/new] (re-require should replace, not append)", folders)
	}
}

func TestDependsOfFiltersByActiveOS(t *testing.T) {
	s := openTestStore(t)

	it := iid.NewItem("A")
	it.Bag(iid.Common).Depends = []string{"base-dep"}
	it.Bag(iid.Mac).Depends = []string{"mac-dep"}
	it.Bag(iid.Win).Depends = []string{"win-dep"}
	if err := s.UpsertItem(it); err != nil {
		t.Fatal(err)
	}

	deps, err := s.DependsOf("A")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0] != "base-dep" {
		t.Errorf("with no active OS, DependsOf = %v, want only common entries", deps)
	}

	if err := s.ActivateOSes([]iid.OSTag{iid.Mac}); err != nil {
		t.Fatal(err)
	}
	deps, err = s.DependsOf("A")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 {
		t.Fatalf("with Mac active, DependsOf = %v, want 2 entries", deps)
	}

	if err := s.ResetActiveOSes(); err != nil {
		t.Fatal(err)
	}
	deps, err = s.DependsOf("A")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 {
		t.Errorf("after ResetActiveOSes, DependsOf = %v, want only common", deps)
	}
}

func TestIidsForGUID(t *testing.T) {
	s := openTestStore(t)

	x := iid.NewItem("X")
	x.Guids = []string{"11111111-1111-1111-1111-111111111111"}
	y := iid.NewItem("Y")
	y.Guids = []string{"11111111-1111-1111-1111-111111111111"}
	if err := s.UpsertItem(x); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertItem(y); err != nil {
		t.Fatal(err)
	}

	iids, err := s.IidsForGUID("11111111-1111-1111-1111-111111111111")
	if err != nil {
		t.Fatal(err)
	}
	if len(iids) != 2 || iids[0] != "X" || iids[1] != "Y" {
		t.Errorf("IidsForGUID() = %v, want [X Y]", iids)
	}
}

func TestGetResolvedDetailsValueForIIDUnique(t *testing.T) {
	s := openTestStore(t)

	it := iid.NewItem("A")
	it.Bag(iid.Common).Depends = []string{"dep1"}
	it.Bag(iid.Mac).Depends = []string{"dep1", "dep2"}
	if err := s.UpsertItem(it); err != nil {
		t.Fatal(err)
	}
	if err := s.ActivateOSes([]iid.OSTag{iid.Mac}); err != nil {
		t.Fatal(err)
	}

	deps, err := s.GetResolvedDetailsValueForIID("A", "depends", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 {
		t.Errorf("unique depends = %v, want [dep1 dep2]", deps)
	}
}

func TestActionsFilteredByPhase(t *testing.T) {
	s := openTestStore(t)

	it := iid.NewItem("A")
	it.Bag(iid.Common).Actions = map[iid.ActionPhase][]string{
		iid.PreCopy:  {"echo pre"},
		iid.PostCopy: {"echo post"},
	}
	if err := s.UpsertItem(it); err != nil {
		t.Fatal(err)
	}

	cmds, err := s.GetResolvedDetailsValueForIID("A", "actions:pre_copy", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 || cmds[0] != "echo pre" {
		t.Errorf("actions:pre_copy = %v, want [echo pre]", cmds)
	}
}

func TestReadRequireNodeStampsRepoRev(t *testing.T) {
	s := openTestStore(t)

	loader := func(node string) ([]*iid.Item, int, error) {
		return []*iid.Item{itemWithCommonBag("A", nil, nil)}, 42, nil
	}
	if err := s.ReadRequireNode("some-node", loader); err != nil {
		t.Fatal(err)
	}

	var rev int
	if err := s.db.QueryRow(`SELECT last_require_repo_rev FROM items WHERE iid = 'A'`).Scan(&rev); err != nil {
		t.Fatal(err)
	}
	if rev != 42 {
		t.Errorf("last_require_repo_rev = %d, want 42", rev)
	}
}
