package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    Driver
		wantErr bool
	}{
		{in: "", want: DriverPostgres},
		{in: "postgres", want: DriverPostgres},
		{in: "sqlite3", want: DriverSQLite},
		{in: "sqlite", want: DriverSQLite},
		{in: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDriver(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitSchema_SQLiteIsRepeatable(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	conn, err := Connect(DriverSQLite, dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, conn, DriverSQLite))
	require.NoError(t, InitSchema(ctx, conn, DriverSQLite))

	for _, table := range []string{"albums", "saved_albums", "tournaments", "tournament_rounds"} {
		var n int
		err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
	assert.False(t, DriverSQLite.SupportsRowLocks())
	assert.True(t, DriverPostgres.SupportsRowLocks())
}

func TestConnect_SQLiteEnforcesForeignKeysWithoutDSNFlag(t *testing.T) {
	conn, err := Connect(DriverSQLite, filepath.Join(t.TempDir(), "plain.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, conn, DriverSQLite))

	var enabled int
	require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled))
	assert.Equal(t, 1, enabled)

	now := time.Now().UTC()
	_, err = conn.ExecContext(ctx,
		`INSERT INTO tournaments (id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"t-1", "Best of", "user-1", now, now)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx,
		`INSERT INTO tournament_rounds (tournament_id, created_at) VALUES (?, ?)`, "t-1", now)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `DELETE FROM tournaments WHERE id = ?`, "t-1")
	require.NoError(t, err)

	var left int
	require.NoError(t, conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_rounds WHERE tournament_id = ?`, "t-1").Scan(&left))
	assert.Equal(t, 0, left)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "/tmp/a.db", want: "/tmp/a.db?_foreign_keys=on"},
		{in: "file:a.db?cache=shared", want: "file:a.db?cache=shared&_foreign_keys=on"},
		{in: "/tmp/a.db?_foreign_keys=on", want: "/tmp/a.db?_foreign_keys=on"},
		{in: "/tmp/a.db?_fk=1", want: "/tmp/a.db?_fk=1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.in))
		})
	}
}
