// Package valuestore implements the scoped, hierarchical key→list-of-strings
// map described in spec.md §4.1: a stack of scopes supporting $(NAME)
// interpolation with cycle-safe resolution, const bindings, and dunder
// ("__NAME__") engine-internal variables.
//
// Interpolation is modeled as data rather than walked ad hoc: a Value is one
// of Atom, Ref, or Concat (spec.md §9's redesign note), and resolution is a
// visitor that tracks an in-progress set to detect cycles. This replaces the
// original Python engine's ambient "currently resolving" stack with an
// explicit parameter threaded through Resolve.
package valuestore

import (
	"fmt"
	"regexp"
	"strings"
)

// refPattern matches $(NAME) and $(NAME:list_sep="SEP") references.
var refPattern = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)(?::list_sep="([^"]*)")?\)`)

// CyclicReferenceError is returned when resolving a value would revisit a
// name already being resolved in the current call chain.
type CyclicReferenceError struct {
	Chain []string
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("cyclic variable reference: %s", strings.Join(e.Chain, " -> "))
}

// ImmutableVarError is returned when code attempts to rebind a name
// registered as a constant via AddConstVar.
type ImmutableVarError struct {
	Name string
}

func (e *ImmutableVarError) Error() string {
	return fmt.Sprintf("variable %q is immutable", e.Name)
}

// UndefinedVarError is returned when a $(NAME) reference has no binding in
// any active scope.
type UndefinedVarError struct {
	Name string
}

func (e *UndefinedVarError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// scope is one level of the value-store stack.
type scope struct {
	values map[string][]string
	consts map[string]bool
}

func newScope() *scope {
	return &scope{values: make(map[string][]string), consts: make(map[string]bool)}
}

// Store is a stack of scopes. The zero value is not usable; use New.
type Store struct {
	scopes        []*scope
	allowInternal bool
	frozen        bool
	frozenFlat    map[string][]string
}

// New creates a Store with a single base scope.
func New() *Store {
	return &Store{scopes: []*scope{newScope()}}
}

// SetAllowInternal toggles whether user-facing mutation of __NAME__ dunder
// variables is permitted. Readers that parse trusted, engine-generated
// documents may set this; YAML front-ends reading user data should not.
func (s *Store) SetAllowInternal(allow bool) {
	s.allowInternal = allow
}

// PushScope adds a new, empty scope to the top of the stack.
func (s *Store) PushScope() {
	s.scopes = append(s.scopes, newScope())
}

// PopScope removes the top scope. It is a no-op (and returns false) if only
// the base scope remains, mirroring a guaranteed-cleanup block: callers
// should pair PushScope with a deferred PopScope.
func (s *Store) PopScope() bool {
	if len(s.scopes) <= 1 {
		return false
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return true
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}

// SetVar rebinds name to values in the top scope. Returns ImmutableVarError
// if name was registered via AddConstVar in any scope, or if name is a dunder
// variable and internal mutation is not allowed.
func (s *Store) SetVar(name string, values ...string) error {
	if isDunder(name) && !s.allowInternal {
		return &ImmutableVarError{Name: name}
	}
	if s.isConst(name) {
		return &ImmutableVarError{Name: name}
	}
	top := s.scopes[len(s.scopes)-1]
	top.values[name] = append([]string(nil), values...)
	return nil
}

// AddConstVar binds name to values as an immutable constant in the top
// scope. Subsequent SetVar/AddConstVar calls for the same name fail.
func (s *Store) AddConstVar(name string, values ...string) error {
	if s.isConst(name) {
		return &ImmutableVarError{Name: name}
	}
	top := s.scopes[len(s.scopes)-1]
	top.values[name] = append([]string(nil), values...)
	top.consts[name] = true
	return nil
}

func (s *Store) isConst(name string) bool {
	for _, sc := range s.scopes {
		if sc.consts[name] {
			return true
		}
	}
	return false
}

// lookup walks the stack top-to-bottom and returns the first binding found.
func (s *Store) lookup(name string) ([]string, bool) {
	if s.frozen {
		v, ok := s.frozenFlat[name]
		return v, ok
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Freeze snapshots the flattened top-to-bottom view of all scopes so that
// subsequent SetVar/PushScope/PopScope calls do not affect values already
// resolved against this store. Used once the install plan is committed
// (spec.md §4.1, §5 "writes are confined to the planning phase").
func (s *Store) Freeze() {
	flat := make(map[string][]string)
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for k, v := range s.scopes[i].values {
			flat[k] = v
		}
	}
	s.frozenFlat = flat
	s.frozen = true
}

// GetRaw returns the unresolved list of values bound to name, without
// interpolation.
func (s *Store) GetRaw(name string) ([]string, bool) {
	return s.lookup(name)
}

// Resolve expands $(NAME) references within a single string, joining
// list-valued references with a space by default, or the list_sep override
// when given. Cyclic references return CyclicReferenceError. value is
// parsed into a Value AST and resolution is a visitor over that AST
// (spec.md §9) rather than a direct regex rewrite.
func (s *Store) Resolve(value string) (string, error) {
	return s.eval(Parse(value), map[string]bool{}, nil)
}

// eval walks v, substituting each Ref against the store. chain is the
// ordered path of names currently being resolved, used to report a
// deterministic cycle when a name reappears in inProgress.
func (s *Store) eval(v Value, inProgress map[string]bool, chain []string) (string, error) {
	switch val := v.(type) {
	case Atom:
		return string(val), nil
	case Ref:
		return s.evalRef(val, inProgress, chain)
	case Concat:
		var sb strings.Builder
		for _, part := range val {
			rv, err := s.eval(part, inProgress, chain)
			if err != nil {
				return "", err
			}
			sb.WriteString(rv)
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("valuestore: unhandled Value kind %T", v)
	}
}

func (s *Store) evalRef(ref Ref, inProgress map[string]bool, chain []string) (string, error) {
	name := ref.Name
	sep := ref.ListSep
	if sep == "" {
		sep = " "
	}

	if inProgress[name] {
		return "", &CyclicReferenceError{Chain: append(append([]string(nil), chain...), name)}
	}

	vals, ok := s.lookup(name)
	if !ok {
		return "", &UndefinedVarError{Name: name}
	}

	inProgress[name] = true
	chain = append(chain, name)
	defer delete(inProgress, name)

	resolvedParts := make([]string, len(vals))
	for i, v := range vals {
		rv, err := s.eval(Parse(v), inProgress, chain)
		if err != nil {
			return "", err
		}
		resolvedParts[i] = rv
	}
	return strings.Join(resolvedParts, sep), nil
}

// ResolveList resolves $(NAME) references in each element of values and
// returns the flattened, resolved list (each input string may itself
// expand to multiple words only via list_sep joining, per Resolve).
func (s *Store) ResolveList(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		rv, err := s.Resolve(v)
		if err != nil {
			return nil, err
		}
		out[i] = rv
	}
	return out, nil
}

// ResolveVarAsList resolves and returns the named variable's list value.
func (s *Store) ResolveVarAsList(name string) ([]string, error) {
	vals, ok := s.lookup(name)
	if !ok {
		return nil, &UndefinedVarError{Name: name}
	}
	return s.ResolveList(vals)
}
