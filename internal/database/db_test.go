package database

import (
	"path/filepath"
	"testing"

	"family-os/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "family.db")

	db, err := NewDB(path, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"families", "feedback_events", "execution_metrics", "sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// A second run finds nothing to do.
	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
