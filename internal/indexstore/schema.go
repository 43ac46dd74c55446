package indexstore

// schema is the DDL for the logical tables named in spec.md §4.3. Every
// table keys on iid plus whatever ordering spec.md calls out (os, position,
// phase) so the per-OS, order-preserving invariants of the iid model carry
// into storage unchanged.
const schema = `
CREATE TABLE IF NOT EXISTS items (
	iid TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	remark TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	last_require_repo_rev INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS guids (
	iid TEXT NOT NULL REFERENCES items(iid),
	guid TEXT NOT NULL,
	PRIMARY KEY (iid, guid)
);
CREATE INDEX IF NOT EXISTS guids_by_guid ON guids(guid);

CREATE TABLE IF NOT EXISTS inherits (
	iid TEXT NOT NULL,
	parent_iid TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (iid, position)
);

CREATE TABLE IF NOT EXISTS sources (
	iid TEXT NOT NULL,
	os TEXT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (iid, os, position)
);

CREATE TABLE IF NOT EXISTS folders (
	iid TEXT NOT NULL,
	os TEXT NOT NULL,
	position INTEGER NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (iid, os, position)
);

CREATE TABLE IF NOT EXISTS depends (
	iid TEXT NOT NULL,
	os TEXT NOT NULL,
	position INTEGER NOT NULL,
	ref TEXT NOT NULL,
	PRIMARY KEY (iid, os, position)
);

CREATE TABLE IF NOT EXISTS actions (
	iid TEXT NOT NULL,
	os TEXT NOT NULL,
	phase TEXT NOT NULL,
	position INTEGER NOT NULL,
	command TEXT NOT NULL,
	PRIMARY KEY (iid, os, phase, position)
);

CREATE TABLE IF NOT EXISTS active_os (
	os_name TEXT PRIMARY KEY,
	active INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
);
`
