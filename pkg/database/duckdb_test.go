package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenInitializesSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, table := range clearOrder {
		var count int
		err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, 0, count)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InitSchema(ctx))
	require.NoError(t, db.InitSchema(ctx))
}

func TestSequencesAssignIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var first, second int64
	err := db.Conn().QueryRowContext(ctx,
		`INSERT INTO visits (ts, path, identity_hash, browser_session_id) VALUES (?, '/a', 'h', 's') RETURNING id`,
		time.Now(),
	).Scan(&first)
	require.NoError(t, err)

	err = db.Conn().QueryRowContext(ctx,
		`INSERT INTO visits (ts, path, identity_hash, browser_session_id) VALUES (?, '/b', 'h', 's') RETURNING id`,
		time.Now(),
	).Scan(&second)
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestResetClearsAllData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now()
	_, err := db.Conn().ExecContext(ctx,
		`INSERT INTO visits (ts, path, identity_hash, browser_session_id) VALUES (?, '/a', 'h', 's')`, now)
	require.NoError(t, err)
	_, err = db.Conn().ExecContext(ctx,
		`INSERT INTO pages (path, first_visit_time, last_visit_time) VALUES ('/a', ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = db.Conn().ExecContext(ctx,
		`INSERT INTO active_sessions (browser_session_id, identity_hash, start_time) VALUES ('s', 'h', ?)`, now)
	require.NoError(t, err)

	require.NoError(t, db.Reset(ctx))

	for _, table := range clearOrder {
		var count int
		err := db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count, "table %s should be empty after reset", table)
	}

	// The schema survives a reset.
	require.NoError(t, db.Health(ctx))
}
