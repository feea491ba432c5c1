package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/generalbusiness/allodakar/internal/db"
	"github.com/generalbusiness/allodakar/internal/testutil"
)

func TestConnection(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("migrate again is no-op", func(t *testing.T) {
		version, err := db.Migrate(pg.DSN)

		require.NoError(t, err)
		assert.Equal(t, uint(4), version, "one version per migration file pair")
	})

	t.Run("connect tags application name", func(t *testing.T) {
		pool, err := db.Connect(t.Context(), pg.DSN)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		var name string
		err = pool.QueryRow(t.Context(), "SELECT current_setting('application_name')").Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, "allodakar", name)
	})

	t.Run("invalid dsn", func(t *testing.T) {
		_, err := db.Connect(t.Context(), "postgres://%zz")
		require.ErrorContains(t, err, "invalid database dsn")
	})
}
