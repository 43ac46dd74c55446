package iid

import (
	"fmt"
	"sort"
	"strings"
)

// InheritCycleError is returned when the inherit_from edges form a cycle.
type InheritCycleError struct {
	Chain []string
}

func (e *InheritCycleError) Error() string {
	return fmt.Sprintf("circular inheritance: %s", strings.Join(e.Chain, " -> "))
}

// Lookup resolves an IID key to its Item, analogous to the index store's
// get_all_iids-backed map.
type Lookup func(key string) (*Item, bool)

// Resolver folds inheritance and caches the effective view per (iid, active
// OS set), since spec.md §3 specifies inheritance resolution as "lazy and
// memoized".
type Resolver struct {
	lookup Lookup
	cache  map[string]map[OSTag]*Bag // iid -> active-os-key -> effective bag
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, cache: make(map[string]map[OSTag]*Bag)}
}

func activeKey(activeOSes []OSTag) OSTag {
	sorted := append([]OSTag(nil), activeOSes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, o := range sorted {
		parts[i] = string(o)
	}
	return OSTag(strings.Join(parts, "+"))
}

// Effective folds item's ancestors (via inherit_from, depth-first,
// preserving item's own entries first) and selects the bags for Common
// plus each OSTag in activeOSes, returning one merged Bag
// (invariant d: "X's own entries first by insertion, then Y's,
// recursively").
func (r *Resolver) Effective(rootKey string, activeOSes []OSTag) (*Bag, error) {
	key := activeKey(activeOSes)
	if byKey, ok := r.cache[rootKey]; ok {
		if b, ok := byKey[key]; ok {
			return b, nil
		}
	}

	visited := make(map[string]bool)
	merged := newBag()

	var walk func(itemKey string, chain []string) error
	walk = func(itemKey string, chain []string) error {
		for _, c := range chain {
			if c == itemKey {
				full := append(append([]string(nil), chain...), itemKey)
				return &InheritCycleError{Chain: full}
			}
		}
		if visited[itemKey] {
			return nil
		}
		visited[itemKey] = true

		item, ok := r.lookup(itemKey)
		if !ok {
			return fmt.Errorf("unknown inherited iid %q", itemKey)
		}

		selectors := append([]OSTag{Common}, activeOSes...)
		for _, os := range selectors {
			if b, ok := item.PerOS[os]; ok {
				merged.appendFrom(b)
			}
		}

		for _, parent := range item.InheritFrom {
			if err := walk(parent, append(chain, itemKey)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(rootKey, nil); err != nil {
		return nil, err
	}

	if r.cache[rootKey] == nil {
		r.cache[rootKey] = make(map[OSTag]*Bag)
	}
	r.cache[rootKey][key] = merged
	return merged, nil
}

// DetectInheritCycles walks every item's inherit_from edges and returns the
// first cycle found, or nil if the inherit graph is a DAG (invariant c).
func DetectInheritCycles(allKeys []string, lookup Lookup) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(allKeys))

	var dfs func(key string, path []string) error
	dfs = func(key string, path []string) error {
		color[key] = gray
		item, ok := lookup(key)
		if ok {
			for _, parent := range item.InheritFrom {
				switch color[parent] {
				case gray:
					cycle := append(append([]string(nil), path...), key, parent)
					return &InheritCycleError{Chain: cycle}
				case white:
					if err := dfs(parent, append(path, key)); err != nil {
						return err
					}
				}
			}
		}
		color[key] = black
		return nil
	}

	for _, key := range allKeys {
		if color[key] == white {
			if err := dfs(key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
