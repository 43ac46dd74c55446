// Package indexstore is the relational backing for the iid model
// (spec.md §4.3): items, their guids, inheritance order, per-OS sources,
// folders, dependency references and action commands, plus the active-OS
// filter every read goes through. It is grounded on modernc.org/sqlite, a
// dependency already present (indirectly, unused) in the teacher's go.mod;
// this package is the first thing in the tree to import it directly.
package indexstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/instl-engine/instl/internal/iid"
)

// Store wraps a sqlite-backed connection implementing the index tables.
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path ("" or ":memory:" for
// an in-memory store) and ensures its schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Type: ErrTypeOpen, Message: "opening database", Err: err}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one handle

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return &Error{Type: ErrTypeSchema, Message: "initializing schema", Err: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertItem replaces every row belonging to it.Key across all tables with
// it's current contents, in one transaction. Re-requiring an iid (the sync
// cursor advancing, spec.md §3 Lifecycle) is expected to call this again.
func (s *Store) UpsertItem(it *iid.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "beginning transaction", Err: err}
	}
	defer tx.Rollback()

	if err := deleteItemRows(tx, it.Key); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO items (iid, name, remark, description, version, last_require_repo_rev) VALUES (?, ?, ?, ?, ?, ?)`,
		it.Key, it.Name, it.Remark, it.Description, it.Version, it.LastRequireRepoRev,
	); err != nil {
		return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting item", Err: err}
	}

	for _, g := range it.Guids {
		if _, err := tx.Exec(`INSERT INTO guids (iid, guid) VALUES (?, ?)`, it.Key, g); err != nil {
			return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting guid", Err: err}
		}
	}

	for pos, parent := range it.InheritFrom {
		if _, err := tx.Exec(`INSERT INTO inherits (iid, parent_iid, position) VALUES (?, ?, ?)`, it.Key, parent, pos); err != nil {
			return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting inherit", Err: err}
		}
	}

	for os, bag := range it.PerOS {
		for pos, src := range bag.Sources {
			if _, err := tx.Exec(
				`INSERT INTO sources (iid, os, position, path, kind) VALUES (?, ?, ?, ?, ?)`,
				it.Key, string(os), pos, src.Path, string(src.Kind),
			); err != nil {
				return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting source", Err: err}
			}
		}
		for pos, f := range bag.Folders {
			if _, err := tx.Exec(`INSERT INTO folders (iid, os, position, path) VALUES (?, ?, ?, ?)`, it.Key, string(os), pos, f); err != nil {
				return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting folder", Err: err}
			}
		}
		for pos, d := range bag.Depends {
			if _, err := tx.Exec(`INSERT INTO depends (iid, os, position, ref) VALUES (?, ?, ?, ?)`, it.Key, string(os), pos, d); err != nil {
				return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting depend", Err: err}
			}
		}
		for phase, cmds := range bag.Actions {
			for pos, cmd := range cmds {
				if _, err := tx.Exec(
					`INSERT INTO actions (iid, os, phase, position, command) VALUES (?, ?, ?, ?, ?)`,
					it.Key, string(os), string(phase), pos, cmd,
				); err != nil {
					return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "inserting action", Err: err}
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Type: ErrTypeWrite, IID: it.Key, Message: "committing transaction", Err: err}
	}
	return nil
}

func deleteItemRows(tx *sql.Tx, key string) error {
	for _, table := range []string{"items", "guids", "inherits", "sources", "folders", "depends", "actions"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE iid = ?`, table), key); err != nil {
			return &Error{Type: ErrTypeWrite, IID: key, Message: "clearing existing rows in " + table, Err: err}
		}
	}
	return nil
}

// HasIID reports whether iidKey is a known install item (resolve.Index).
func (s *Store) HasIID(iidKey string) bool {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM items WHERE iid = ?`, iidKey).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// GetAllIIDs returns every known iid, in insertion (rowid) order.
func (s *Store) GetAllIIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT iid FROM items ORDER BY rowid`)
	if err != nil {
		return nil, &Error{Type: ErrTypeQuery, Message: "listing iids", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, &Error{Type: ErrTypeQuery, Message: "scanning iid", Err: err}
		}
		out = append(out, key)
	}
	return out, rows.Err()
}
