package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, MigrateUp(db))

	tables := []string{"users", "revoked_tokens", "sites", "user_sites", "folders", "files", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s was not created", table)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, MigrateUp(db))
	require.NoError(t, MigrateUp(db))
}

func TestCheckMigrationStatus(t *testing.T) {
	db := openTestDB(t)

	err := CheckMigrationStatus(db)
	require.Error(t, err)
	assert.Equal(t, "database has no schema version (needs migration)", err.Error())

	require.NoError(t, MigrateUp(db))
	assert.NoError(t, CheckMigrationStatus(db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, MigrateUp(db))
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := NewInsertBuilder("sites").
			Columns("id", "name", "created_at").
			Values("8b7f7f0e-0000-4000-8000-000000000001", "rolled back", "2024-01-01 00:00:00").
			Exec(ctx, tx)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sites").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, MigrateUp(db))

	_, err := db.Exec(`INSERT INTO folders (id, name, site_id, created_at) VALUES ('f1', 'x', 'missing-site', '2024-01-01 00:00:00')`)
	assert.Error(t, err)
}

func TestCheckReady(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.CheckReady(context.Background()))
}
