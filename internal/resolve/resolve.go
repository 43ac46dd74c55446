// Package resolve computes the transitive dependency closure of a
// requested IID set, detects cycles, expands guid references, and reports
// orphans (spec.md §4.4). The cycle-detection approach (three-color DFS)
// is grounded on terassyi-tomei's internal/graph/dag.go, adapted from a
// resource-kind DAG to the iid/guid depends-edge model.
package resolve

import (
	"fmt"
	"strings"

	"github.com/instl-engine/instl/internal/iid"
)

// DependencyCycleError is fatal to planning (spec.md §7): it names the full
// chain that closes the cycle.
type DependencyCycleError struct {
	Chain []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Chain, " -> "))
}

// Index is the subset of the index store the resolver needs: dependency
// lookups filtered by active OS, and guid-to-iid expansion.
type Index interface {
	// DependsOf returns the direct dependency references (iid or guid) of
	// iid, already filtered to the active OS selection.
	DependsOf(iidKey string) ([]string, error)
	// IidsForGUID returns every iid carrying the given guid.
	IidsForGUID(guid string) ([]string, error)
	// HasIID reports whether iidKey is a known install item.
	HasIID(iidKey string) bool
}

// Plan is the resolver's output (spec.md §3 InstallPlan, minus the parts of
// InstallPlan that are the caller's responsibility to attach, like the
// originating request).
type Plan struct {
	// FullInstallItems is the ordered, deduplicated closure (superset of
	// the request).
	FullInstallItems []string
	// OrphanInstallItems were referenced (by depends or request) but are
	// undefined in the index; these are warnings, not fatal (§4.4).
	OrphanInstallItems []string
}

// Resolve computes the closure of requested per the algorithm of §4.4.
// Request items are visited in insertion order; a requested value that
// looks like a 36-character GUID is expanded to every iid carrying it.
func Resolve(requested []string, idx Index) (*Plan, error) {
	p := &Plan{}
	visiting := make(map[string]bool)
	inOut := make(map[string]bool)
	orphanSeen := make(map[string]bool)

	var visit func(key string, chain []string) error
	visit = func(key string, chain []string) error {
		if iid.LooksLikeGUID(key) {
			iids, err := idx.IidsForGUID(key)
			if err != nil {
				return err
			}
			if len(iids) == 0 {
				if !orphanSeen[key] {
					orphanSeen[key] = true
					p.OrphanInstallItems = append(p.OrphanInstallItems, key)
				}
				return nil
			}
			for _, iidKey := range iids {
				if err := visit(iidKey, chain); err != nil {
					return err
				}
			}
			return nil
		}

		if visiting[key] {
			full := append(append([]string(nil), chain...), key)
			return &DependencyCycleError{Chain: full}
		}
		if inOut[key] {
			return nil
		}

		if !idx.HasIID(key) {
			if !orphanSeen[key] {
				orphanSeen[key] = true
				p.OrphanInstallItems = append(p.OrphanInstallItems, key)
			}
			return nil
		}

		visiting[key] = true
		inOut[key] = true
		p.FullInstallItems = append(p.FullInstallItems, key)

		deps, err := idx.DependsOf(key)
		if err != nil {
			delete(visiting, key)
			return err
		}
		for _, dep := range deps {
			if err := visit(dep, append(chain, key)); err != nil {
				delete(visiting, key)
				return err
			}
		}

		delete(visiting, key)
		return nil
	}

	for _, r := range requested {
		if err := visit(r, nil); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// NeededBy builds the reverse dependency graph on demand: for each iid in
// universe, which other iids in universe directly depend on it.
func NeededBy(universe []string, idx Index) (map[string][]string, error) {
	reverse := make(map[string][]string)
	for _, key := range universe {
		deps, err := idx.DependsOf(key)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], key)
		}
	}
	return reverse, nil
}

// FilterToLimit restricts plan's FullInstallItems for reporting to the
// named subset plus whatever their dependencies pulled in, marking the
// pulled-in set (spec's §6 --limit flag, SPEC_FULL.md C.7). It does not
// re-run resolution; it only narrows what is reported, so dependency
// closure remains visible.
func FilterToLimit(plan *Plan, limit []string) (requested map[string]bool, pulledIn map[string]bool) {
	requested = make(map[string]bool, len(limit))
	for _, l := range limit {
		requested[l] = true
	}
	pulledIn = make(map[string]bool)
	for _, key := range plan.FullInstallItems {
		if !requested[key] {
			pulledIn[key] = true
		}
	}
	return requested, pulledIn
}
