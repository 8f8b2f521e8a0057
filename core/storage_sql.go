package core

// storage_sql.go — a SQL-backed StorageBackend (spec.md §6, backend
// "sql"), driven by modernc.org/sqlite (a pure-Go driver also pulled in
// by the pack's Erigon fork and by the Teranode/nhbchain manifests) so no
// cgo toolchain is required. The whole snapshot is stored as one JSON blob
// per save, keyed by a single fixed row id; SaveSnapshot runs the
// delete-then-insert inside one transaction so a crash mid-write leaves
// the previous snapshot intact rather than a half-written row.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data BLOB NOT NULL
);
`

// SQLStorage persists the snapshot as a single JSON blob in a SQLite
// database.
type SQLStorage struct {
	db *sql.DB
}

// NewSQLStorage opens (creating if absent) the SQLite database at dsn and
// ensures its schema exists.
func NewSQLStorage(dsn string) (*SQLStorage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr(StorageUnavailable, "opening sqlite database", err)
	}
	db.SetMaxOpenConns(1) // single-writer facade; avoid sqlite lock contention
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, storageErr(StorageUnavailable, "creating schema", err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) LoadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = 1`)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, storageErr(StorageUnavailable, "querying snapshot row", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return Snapshot{}, false, storageErr(StorageCorrupt, "decoding snapshot blob", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, false, storageErr(StorageCorrupt, fmt.Sprintf("unsupported snapshot version %d", snap.Version), nil)
	}
	return snap, true, nil
}

func (s *SQLStorage) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		return storageErr(StorageWriteError, "encoding snapshot", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(StorageWriteError, "beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = 1`); err != nil {
		return storageErr(StorageWriteError, "clearing previous snapshot row", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (id, data) VALUES (1, ?)`, blob); err != nil {
		return storageErr(StorageWriteError, "inserting snapshot row", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(StorageWriteError, "committing transaction", err)
	}
	return nil
}

func (s *SQLStorage) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr(StorageUnavailable, "pinging sqlite database", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
