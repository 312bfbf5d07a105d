package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	_, connStr, cleanup := SetupTestDB(t)
	t.Cleanup(cleanup)

	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	total := len(ups)

	m, err := NewFromConnectionString(connStr)
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(total), version)

	// Walk all the way down and back up to verify each migration is
	// reversible.
	require.NoError(t, m.Steps(-total))
	require.NoError(t, m.Up())

	version, dirty, err = m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(total), version)
}
