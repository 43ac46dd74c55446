package indexstore

import (
	"sort"

	"github.com/instl-engine/instl/internal/iid"
)

// ActivateOSes replaces the active-OS filter with oses, in the given
// priority order (first is highest priority after "common", which always
// applies regardless of activation — spec.md §4.3).
func (s *Store) ActivateOSes(oses []iid.OSTag) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &Error{Type: ErrTypeWrite, Message: "beginning transaction", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM active_os`); err != nil {
		return &Error{Type: ErrTypeWrite, Message: "clearing active_os", Err: err}
	}
	for pos, os := range oses {
		if !iid.ValidOSTags[os] {
			return &Error{Type: ErrTypeWrite, Message: "unknown OS tag " + string(os)}
		}
		if _, err := tx.Exec(`INSERT INTO active_os (os_name, active, position) VALUES (?, 1, ?)`, string(os), pos); err != nil {
			return &Error{Type: ErrTypeWrite, Message: "activating OS " + string(os), Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Type: ErrTypeWrite, Message: "committing active OS set", Err: err}
	}
	return nil
}

// ResetActiveOSes clears the active-OS filter; only "common" rows remain visible.
func (s *Store) ResetActiveOSes() error {
	if _, err := s.db.Exec(`DELETE FROM active_os`); err != nil {
		return &Error{Type: ErrTypeWrite, Message: "resetting active_os", Err: err}
	}
	return nil
}

// osPriority returns the currently active OS tags (in their activation
// order) and a priority lookup where "common" is always present and always
// lowest, per §4.3's "os-priority where 'common' is lowest".
func (s *Store) osPriority() (visible []string, priority map[string]int, err error) {
	rows, err := s.db.Query(`SELECT os_name, position FROM active_os WHERE active = 1 ORDER BY position`)
	if err != nil {
		return nil, nil, &Error{Type: ErrTypeQuery, Message: "reading active_os", Err: err}
	}
	defer rows.Close()

	priority = map[string]int{"common": -1}
	visible = []string{"common"}
	for rows.Next() {
		var os string
		var pos int
		if err := rows.Scan(&os, &pos); err != nil {
			return nil, nil, &Error{Type: ErrTypeQuery, Message: "scanning active_os", Err: err}
		}
		priority[os] = pos
		visible = append(visible, os)
	}
	return visible, priority, rows.Err()
}

type orderedRow struct {
	os       string
	position int
	value    string
}

// queryOrdered fetches valueCol from table for iidKey, restricted to the
// rows whose os is currently visible, ordered by (position, os-priority).
func (s *Store) queryOrdered(table, valueCol, iidKey string, extraWhere string, extraArgs ...any) ([]string, error) {
	visible, priority, err := s.osPriority()
	if err != nil {
		return nil, err
	}

	placeholders := make([]byte, 0, len(visible)*2)
	args := make([]any, 0, len(visible)+1+len(extraArgs))
	args = append(args, iidKey)
	for i, os := range visible {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, os)
	}
	args = append(args, extraArgs...)

	query := "SELECT os, position, " + valueCol + " FROM " + table +
		" WHERE iid = ? AND os IN (" + string(placeholders) + ")" + extraWhere

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "querying " + table, Err: err}
	}
	defer rows.Close()

	var collected []orderedRow
	for rows.Next() {
		var r orderedRow
		if err := rows.Scan(&r.os, &r.position, &r.value); err != nil {
			return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "scanning " + table, Err: err}
		}
		collected = append(collected, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "iterating " + table, Err: err}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].position != collected[j].position {
			return collected[i].position < collected[j].position
		}
		return priority[collected[i].os] < priority[collected[j].os]
	})

	out := make([]string, len(collected))
	for i, r := range collected {
		out[i] = r.value
	}
	return out, nil
}

func dedupPreserveOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// GetResolvedDetailsValueForIID returns iid's values for field ("folders",
// "depends", "sources", or "actions:<phase>"), filtered by the active OS
// set and ordered per §4.3, optionally deduplicated.
func (s *Store) GetResolvedDetailsValueForIID(iidKey, field string, unique bool) ([]string, error) {
	var (
		values []string
		err    error
	)

	switch {
	case field == "folders":
		values, err = s.queryOrdered("folders", "path", iidKey, "")
	case field == "depends":
		values, err = s.queryOrdered("depends", "ref", iidKey, "")
	case field == "sources":
		values, err = s.queryOrdered("sources", "path || ':' || kind", iidKey, "")
	case len(field) > len("actions:") && field[:len("actions:")] == "actions:":
		phase := field[len("actions:"):]
		values, err = s.queryOrdered("actions", "command", iidKey, " AND phase = ?", phase)
	default:
		return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "unknown resolved-details field " + field}
	}
	if err != nil {
		return nil, err
	}

	if unique {
		values = dedupPreserveOrder(values)
	}
	return values, nil
}

// DependsOf returns iidKey's direct dependency references, filtered by
// active OS and deduplicated, satisfying resolve.Index.
func (s *Store) DependsOf(iidKey string) ([]string, error) {
	return s.GetResolvedDetailsValueForIID(iidKey, "depends", true)
}

// IidsForGUID returns every iid carrying guid, in insertion order,
// satisfying resolve.Index.
func (s *Store) IidsForGUID(guid string) ([]string, error) {
	rows, err := s.db.Query(`SELECT iid FROM guids WHERE guid = ? ORDER BY rowid`, guid)
	if err != nil {
		return nil, &Error{Type: ErrTypeQuery, Message: "resolving guid " + guid, Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &Error{Type: ErrTypeQuery, Message: "scanning guid match", Err: err}
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

// GetItemVersion returns iid's version string, or "" if it has none.
func (s *Store) GetItemVersion(iidKey string) (string, error) {
	var version string
	err := s.db.QueryRow(`SELECT version FROM items WHERE iid = ?`, iidKey).Scan(&version)
	if err != nil {
		return "", &Error{Type: ErrTypeQuery, IID: iidKey, Message: "reading version", Err: err}
	}
	return version, nil
}

// GetItemGuids returns iid's guids in insertion order.
func (s *Store) GetItemGuids(iidKey string) ([]string, error) {
	rows, err := s.db.Query(`SELECT guid FROM guids WHERE iid = ? ORDER BY rowid`, iidKey)
	if err != nil {
		return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "reading guids", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, &Error{Type: ErrTypeQuery, IID: iidKey, Message: "scanning guid", Err: err}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RequireLoader reloads a require node's parsed items from persisted
// storage (spec.md §4.3 read_require_node), returning the items it defines
// and the repo revision they were read at.
type RequireLoader func(node string) (items []*iid.Item, repoRev int, err error)

// ReadRequireNode reloads node via load and upserts every item it defines,
// stamping each with the returned repo revision.
func (s *Store) ReadRequireNode(node string, load RequireLoader) error {
	items, repoRev, err := load(node)
	if err != nil {
		return &Error{Type: ErrTypeWrite, Message: "reading require node " + node, Err: err}
	}
	for _, it := range items {
		it.LastRequireRepoRev = repoRev
		if err := s.UpsertItem(it); err != nil {
			return err
		}
	}
	return nil
}
