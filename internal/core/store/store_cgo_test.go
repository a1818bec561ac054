//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dailypick/dailypick/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.CheckHealth(ctx))
	require.NoError(t, store.Close())
}

func TestOpenLocalStoreConfiguresSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dailypick.db")

	store, err := Open(ctx, config.StoreConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.FileExists(t, path)
	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	require.Equal(t, localBusyTimeoutMS, busyTimeout)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, migrations[len(migrations)-1].version, version)

	var applied int
	require.NoError(t, store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	require.Equal(t, len(migrations), applied)
}

func TestMigrateUpgradesUnversionedStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// An older store: overrides without the note column and no version table.
	_, err = store.DB.ExecContext(ctx, `CREATE TABLE overrides (
		date TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = store.DB.ExecContext(ctx, `INSERT INTO overrides (date, candidate_id, created_at) VALUES ('2025-12-25', 'cedar', 0)`)
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	var note *string
	require.NoError(t, store.DB.QueryRowContext(ctx, "SELECT note FROM overrides WHERE date = '2025-12-25'").Scan(&note))
	require.Nil(t, note)
}

func TestClosedStoreFailsHealthCheck(t *testing.T) {
	var nilStore *Store
	require.Error(t, nilStore.CheckHealth(context.Background()))
	require.NoError(t, nilStore.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver")
}
