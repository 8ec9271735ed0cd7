// Package testutil provides an in-memory metadata store and seed helpers
// for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/docudir-api/internal/database"
)

// NewTestDB returns a migrated in-memory SQLite database closed on cleanup.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.MigrateUp(db))
	return db
}

// SeedUser inserts a user with an unusable password hash.
func SeedUser(t *testing.T, db *database.DB, email string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO users (email, name, password, role, status, created_at) VALUES (?, ?, ?, 'user', 'active', ?) RETURNING id`,
		email, email, "!", time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedSite inserts a site owned by userID and returns its id.
func SeedSite(t *testing.T, db *database.DB, userID int64, name string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO sites (id, name, created_at) VALUES (?, ?, ?)`, id, name, time.Now().UTC())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO user_sites (user_id, site_id, permission) VALUES (?, ?, 'owner')`, userID, id)
	require.NoError(t, err)
	return id
}

// SeedFolder inserts a folder and returns id.
func SeedFolder(t *testing.T, db *database.DB, siteID, id, name string, parentID *string) string {
	t.Helper()

	_, err := db.Exec(`INSERT INTO folders (id, name, parent_id, site_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, parentID, siteID, time.Now().UTC())
	require.NoError(t, err)
	return id
}
