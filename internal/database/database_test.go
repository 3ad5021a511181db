package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesAreOrderedAndPaired(t *testing.T) {
	pg, err := migrationFiles(postgresDir)
	require.NoError(t, err)
	lite, err := migrationFiles(sqliteDir)
	require.NoError(t, err)

	require.NotEmpty(t, pg)
	require.Len(t, lite, len(pg))
	for i := range pg {
		assert.Equal(t, pg[i].name, lite[i].name)
		if i > 0 {
			assert.Less(t, pg[i-1].name, pg[i].name)
		}
	}
}

func TestOpenSQLiteMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	require.NoError(t, MigrateSQLite(context.Background(), db))
	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	files, err := migrationFiles(sqliteDir)
	require.NoError(t, err)
	assert.Equal(t, len(files), applied)

	for _, table := range []string{"events", "variants", "registrations", "tickets", "registration_transitions"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, len(files), applied)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}
