package iid

import "testing"

func makeLookup(items map[string]*Item) Lookup {
	return func(key string) (*Item, bool) {
		it, ok := items[key]
		return it, ok
	}
}

func TestEffectiveInheritanceOrder(t *testing.T) {
	child := NewItem("child")
	child.InheritFrom = []string{"parent"}
	child.Bag(Common).Folders = []string{"child-folder"}

	parent := NewItem("parent")
	parent.Bag(Common).Folders = []string{"parent-folder"}

	items := map[string]*Item{"child": child, "parent": parent}
	r := NewResolver(makeLookup(items))

	bag, err := r.Effective("child", nil)
	if err != nil {
		t.Fatalf("Effective() error: %v", err)
	}
	want := []string{"child-folder", "parent-folder"}
	if len(bag.Folders) != 2 || bag.Folders[0] != want[0] || bag.Folders[1] != want[1] {
		t.Errorf("Folders = %v, want %v (own entries first)", bag.Folders, want)
	}
}

func TestEffectiveDedupsAcrossAncestors(t *testing.T) {
	a := NewItem("a")
	a.InheritFrom = []string{"b"}
	a.Bag(Common).Depends = []string{"shared"}

	b := NewItem("b")
	b.Bag(Common).Depends = []string{"shared", "only-b"}

	items := map[string]*Item{"a": a, "b": b}
	r := NewResolver(makeLookup(items))

	bag, err := r.Effective("a", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bag.Depends) != 2 {
		t.Fatalf("Depends = %v, want 2 deduped entries", bag.Depends)
	}
	if bag.Depends[0] != "shared" || bag.Depends[1] != "only-b" {
		t.Errorf("Depends = %v, want [shared only-b]", bag.Depends)
	}
}

func TestEffectiveActiveOSSelection(t *testing.T) {
	item := NewItem("x")
	item.Bag(Common).Folders = []string{"common-folder"}
	item.Bag(Mac).Folders = []string{"mac-folder"}
	item.Bag(Win).Folders = []string{"win-folder"}

	items := map[string]*Item{"x": item}
	r := NewResolver(makeLookup(items))

	bag, err := r.Effective("x", []OSTag{Mac})
	if err != nil {
		t.Fatal(err)
	}
	if len(bag.Folders) != 2 || bag.Folders[1] != "mac-folder" {
		t.Errorf("Folders = %v, want [common-folder mac-folder]", bag.Folders)
	}
}

func TestEffectiveMemoized(t *testing.T) {
	item := NewItem("x")
	item.Bag(Common).Folders = []string{"f"}
	items := map[string]*Item{"x": item}
	r := NewResolver(makeLookup(items))

	b1, _ := r.Effective("x", nil)
	item.Bag(Common).Folders = append(item.Bag(Common).Folders, "mutated-after-cache")
	b2, _ := r.Effective("x", nil)
	if len(b2.Folders) != len(b1.Folders) {
		t.Errorf("Effective() was not memoized: got %v then %v", b1.Folders, b2.Folders)
	}
}

func TestDetectInheritCyclesFindsCycle(t *testing.T) {
	a := NewItem("a")
	a.InheritFrom = []string{"b"}
	b := NewItem("b")
	b.InheritFrom = []string{"c"}
	c := NewItem("c")
	c.InheritFrom = []string{"a"}

	items := map[string]*Item{"a": a, "b": b, "c": c}
	err := DetectInheritCycles([]string{"a", "b", "c"}, makeLookup(items))
	if err == nil {
		t.Fatal("expected InheritCycleError, got nil")
	}
}

func TestDetectInheritCyclesAcyclic(t *testing.T) {
	a := NewItem("a")
	a.InheritFrom = []string{"b"}
	b := NewItem("b")

	items := map[string]*Item{"a": a, "b": b}
	if err := DetectInheritCycles([]string{"a", "b"}, makeLookup(items)); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestEffectiveUnknownParent(t *testing.T) {
	a := NewItem("a")
	a.InheritFrom = []string{"missing"}
	items := map[string]*Item{"a": a}
	r := NewResolver(makeLookup(items))

	if _, err := r.Effective("a", nil); err == nil {
		t.Fatal("expected error for unknown inherited iid")
	}
}

func TestLooksLikeGUID(t *testing.T) {
	if !LooksLikeGUID("550e8400-e29b-41d4-a716-446655440000") {
		t.Error("expected valid GUID shape to match")
	}
	if LooksLikeGUID("not-a-guid") {
		t.Error("expected non-GUID to not match")
	}
}

func TestNormalizeSourcePath(t *testing.T) {
	cases := []struct {
		in       string
		wantPath string
		wantAbs  bool
		wantVar  bool
	}{
		{"/abs/path", "abs/path", true, false},
		{"$(SOURCE_PREFIX)/rel", "$(SOURCE_PREFIX)/rel", false, true},
		{"rel/path", "rel/path", false, false},
	}
	for _, tc := range cases {
		gotPath, gotAbs, gotVar := NormalizeSourcePath(tc.in)
		if gotPath != tc.wantPath || gotAbs != tc.wantAbs || gotVar != tc.wantVar {
			t.Errorf("NormalizeSourcePath(%q) = (%q,%v,%v), want (%q,%v,%v)",
				tc.in, gotPath, gotAbs, gotVar, tc.wantPath, tc.wantAbs, tc.wantVar)
		}
	}
}
