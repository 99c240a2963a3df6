package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{Path: "file::memory:", Name: name})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBuildConnectionString(t *testing.T) {
	conn := buildConnectionString("/data/journal.db", ProfileLedger)
	assert.Contains(t, conn, "/data/journal.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(FULL)")

	conn = buildConnectionString("file::memory:?cache=shared", ProfileStandard)
	assert.Contains(t, conn, "cache=shared&_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(NORMAL)")
}

func TestMigrateCreatesJournalTables(t *testing.T) {
	db := newMemoryDB(t, "journal")
	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('journal_entries', 'audit_runs')`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrateUnknownNameIsNoop(t *testing.T) {
	db := newMemoryDB(t, "scratch")
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newMemoryDB(t, "scratch")
	_, err := db.Conn().Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO kv VALUES ('a', '1')`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO kv VALUES ('b', '2')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(`INSERT INTO kv VALUES ('c', '3')`)
		panic("mid-transaction")
	})
	assert.Contains(t, err.Error(), "panic in transaction")

	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 1, n)

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestFileDatabaseSnapshotAndStats(t *testing.T) {
	dir := t.TempDir()
	db, err := New(Config{Path: filepath.Join(dir, "nested", "journal.db"), Profile: ProfileLedger, Name: "journal"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.WALCheckpoint(""))
	assert.Error(t, db.WALCheckpoint("DROP TABLE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)

	dest := filepath.Join(dir, "snap", "journal.db")
	require.NoError(t, db.SnapshotTo(ctx, dest))
	assert.FileExists(t, dest)

	copyDB, err := New(Config{Path: dest, Name: "journal-copy"})
	require.NoError(t, err)
	defer copyDB.Close()
	var count int
	require.NoError(t, copyDB.Conn().QueryRow(`SELECT COUNT(*) FROM journal_entries`).Scan(&count))
	assert.Equal(t, 0, count)
}
