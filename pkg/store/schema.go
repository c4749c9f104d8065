// Package store persists a matched result to a seven-table SQL schema
// via database/sql and modernc.org/sqlite, and reconciles a persisted
// result with a fresh in-memory match set (transmute).
package store

import (
	"context"
	"database/sql"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file (
	id INTEGER PRIMARY KEY,
	filename TEXT NOT NULL,
	exefilename TEXT NOT NULL,
	hash TEXT NOT NULL,
	functions INTEGER NOT NULL,
	libfunctions INTEGER NOT NULL,
	calls INTEGER NOT NULL,
	basicblocks INTEGER NOT NULL,
	libbasicblocks INTEGER NOT NULL,
	edges INTEGER NOT NULL,
	libedges INTEGER NOT NULL,
	instructions INTEGER NOT NULL,
	libinstructions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
	version TEXT NOT NULL,
	file1 INTEGER NOT NULL REFERENCES file(id),
	file2 INTEGER NOT NULL REFERENCES file(id),
	description TEXT NOT NULL,
	created TEXT NOT NULL,
	modified TEXT NOT NULL,
	similarity REAL NOT NULL,
	confidence REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS functionalgorithm (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS basicblockalgorithm (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS function (
	id INTEGER PRIMARY KEY,
	address1 INTEGER NOT NULL,
	name1 TEXT NOT NULL,
	address2 INTEGER NOT NULL,
	name2 TEXT NOT NULL,
	similarity REAL NOT NULL,
	confidence REAL NOT NULL,
	flags INTEGER NOT NULL,
	algorithm INTEGER NOT NULL REFERENCES functionalgorithm(id),
	evaluate INTEGER NOT NULL DEFAULT 0,
	commentsported INTEGER NOT NULL DEFAULT 0,
	basicblocks INTEGER NOT NULL,
	edges INTEGER NOT NULL,
	instructions INTEGER NOT NULL,
	UNIQUE (address1, address2)
);

CREATE TABLE IF NOT EXISTS basicblock (
	id INTEGER PRIMARY KEY,
	functionid INTEGER NOT NULL REFERENCES function(id),
	address1 INTEGER NOT NULL,
	address2 INTEGER NOT NULL,
	algorithm INTEGER NOT NULL REFERENCES basicblockalgorithm(id),
	evaluate INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS instruction (
	basicblockid INTEGER NOT NULL REFERENCES basicblock(id),
	address1 INTEGER NOT NULL,
	address2 INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS commentsported (
	address INTEGER PRIMARY KEY
);
`

// CreateSchema creates the seven required tables (plus the optional
// commentsported side table) if they do not already exist.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
