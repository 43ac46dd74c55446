package valuestore

import (
	"errors"
	"testing"
)

func TestResolveSimple(t *testing.T) {
	s := New()
	if err := s.SetVar("NAME", "world"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Resolve("hello $(NAME)")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Resolve() = %q, want %q", got, "hello world")
	}
}

func TestResolveListSep(t *testing.T) {
	s := New()
	if err := s.SetVar("PARTS", "a", "b", "c"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Resolve(`$(PARTS:list_sep=",")`)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "a,b,c" {
		t.Errorf("Resolve() = %q, want %q", got, "a,b,c")
	}
}

func TestResolveNested(t *testing.T) {
	s := New()
	s.SetVar("A", "$(B)")
	s.SetVar("B", "leaf")

	got, err := s.Resolve("$(A)")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != "leaf" {
		t.Errorf("Resolve() = %q, want %q", got, "leaf")
	}
}

func TestResolveCycle(t *testing.T) {
	s := New()
	s.SetVar("A", "$(B)")
	s.SetVar("B", "$(A)")

	_, err := s.Resolve("$(A)")
	var cycleErr *CyclicReferenceError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CyclicReferenceError, got %v", err)
	}
}

func TestResolveUndefined(t *testing.T) {
	s := New()
	_, err := s.Resolve("$(MISSING)")
	var undefErr *UndefinedVarError
	if !errors.As(err, &undefErr) {
		t.Fatalf("expected UndefinedVarError, got %v", err)
	}
}

func TestAddConstVarImmutable(t *testing.T) {
	s := New()
	if err := s.AddConstVar("PLATFORM", "Mac"); err != nil {
		t.Fatal(err)
	}

	err := s.SetVar("PLATFORM", "Win")
	var immErr *ImmutableVarError
	if !errors.As(err, &immErr) {
		t.Fatalf("expected ImmutableVarError, got %v", err)
	}
}

func TestDunderRequiresAllowInternal(t *testing.T) {
	s := New()
	err := s.SetVar("__INTERNAL__", "x")
	var immErr *ImmutableVarError
	if !errors.As(err, &immErr) {
		t.Fatalf("expected ImmutableVarError for dunder var, got %v", err)
	}

	s.SetAllowInternal(true)
	if err := s.SetVar("__INTERNAL__", "x"); err != nil {
		t.Errorf("SetVar with allowInternal=true: %v", err)
	}
}

func TestPushPopScopeShadowing(t *testing.T) {
	s := New()
	s.SetVar("X", "outer")

	s.PushScope()
	s.SetVar("X", "inner")
	got, _ := s.Resolve("$(X)")
	if got != "inner" {
		t.Errorf("inner scope Resolve(X) = %q, want inner", got)
	}

	s.PopScope()
	got, _ = s.Resolve("$(X)")
	if got != "outer" {
		t.Errorf("after PopScope, Resolve(X) = %q, want outer", got)
	}
}

func TestPopScopeRefusesBase(t *testing.T) {
	s := New()
	if s.PopScope() {
		t.Error("PopScope() on base scope should return false")
	}
}

func TestFreezeIsolatesSubsequentWrites(t *testing.T) {
	s := New()
	s.SetVar("X", "before")
	s.Freeze()
	s.SetVar("X", "after")

	got, err := s.Resolve("$(X)")
	if err != nil {
		t.Fatal(err)
	}
	if got != "before" {
		t.Errorf("Resolve(X) after freeze+write = %q, want %q (frozen view)", got, "before")
	}
}

func TestParseSplitsAtomsAndRefs(t *testing.T) {
	v := Parse(`$(SOURCE_PREFIX)/bin/$(NAME:list_sep="-")`)
	concat, ok := v.(Concat)
	if !ok {
		t.Fatalf("Parse() = %T, want Concat", v)
	}
	if len(concat) != 3 {
		t.Fatalf("Parse() yielded %d parts, want 3: %+v", len(concat), concat)
	}
	if ref, ok := concat[0].(Ref); !ok || ref.Name != "SOURCE_PREFIX" {
		t.Errorf("part 0 = %+v, want Ref{SOURCE_PREFIX}", concat[0])
	}
	if atom, ok := concat[1].(Atom); !ok || atom != "/bin/" {
		t.Errorf("part 1 = %+v, want Atom(/bin/)", concat[1])
	}
	if ref, ok := concat[2].(Ref); !ok || ref.Name != "NAME" || ref.ListSep != "-" {
		t.Errorf("part 2 = %+v, want Ref{NAME, -}", concat[2])
	}
}

func TestParseNoRefsReturnsAtom(t *testing.T) {
	v := Parse("plain/path")
	if _, ok := v.(Atom); !ok {
		t.Fatalf("Parse() = %T, want Atom", v)
	}
}
