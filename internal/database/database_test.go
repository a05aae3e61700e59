package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRebind(t *testing.T) {
	q := `SELECT id FROM items WHERE id = ? AND stock >= ?`

	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, `SELECT id FROM items WHERE id = $1 AND stock >= $2`, Postgres.Rebind(q))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "migrate.db") + "?_pragma=busy_timeout(5000)"
	db, err := NewSQLDB("sqlite", dsn, 4, 4, 0, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, zap.NewNop()))
	require.NoError(t, db.Migrate(ctx, zap.NewNop()))

	var version int
	var dirty bool
	require.NoError(t, db.DB.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	assert.Equal(t, 1, version)
	assert.False(t, dirty)

	for _, table := range []string{"items", "sales", "sale_lines", "movements"} {
		var n int
		err := db.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
		assert.NoError(t, err, table)
	}

	// la base sigue abierta después de migrar
	assert.NoError(t, db.DB.PingContext(ctx))
	assert.Equal(t, 1, db.GetStats().MaxOpenConnections)
}

func TestMigrationFilesArePaired(t *testing.T) {
	for _, dialect := range []Dialect{SQLite, Postgres} {
		entries, err := migrationsFS.ReadDir("migrations/" + string(dialect))
		require.NoError(t, err)

		names := map[string]bool{}
		for _, e := range entries {
			names[e.Name()] = true
		}
		assert.True(t, names["001_init.up.sql"], dialect)
		assert.True(t, names["001_init.down.sql"], dialect)
	}
}

func TestNewRedisDB(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisDB("redis://"+mr.Addr(), "", 0, zap.NewNop())
	require.NoError(t, err)
	defer rdb.Close()

	assert.NoError(t, rdb.Ping(context.Background()))

	_, err = NewRedisDB("://bad", "", 0, zap.NewNop())
	assert.Error(t, err)
}
