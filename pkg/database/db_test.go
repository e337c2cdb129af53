package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("LUMINOUS_DB_PATH", "/tmp/luminous-test.db")
	assert.Equal(t, "/tmp/luminous-test.db", DefaultConfig().Path)
}

func TestOpen_CreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.db")
	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// idempotent
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM signals`).Scan(&n))
	assert.Equal(t, 0, n)
}
