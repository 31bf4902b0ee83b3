package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReusesAliveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)

	second, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.countActiveRows(t, "abc"))
}

func TestGetOrCreateRotatesStaleSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
	require.NoError(t, err)

	f.clock.Advance(testIdleWindow + time.Second)

	second, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, f.countActiveRows(t, "abc"))

	// The superseded session never saw activity after its start, so it
	// collapses to zero duration with end_time pinned to start_time.
	var (
		isActive      bool
		totalDuration int64
		endTime       sql.NullTime
	)
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT is_active, total_duration, end_time FROM active_sessions WHERE id = ?`, first.ID,
	).Scan(&isActive, &totalDuration, &endTime)
	require.NoError(t, err)

	assert.False(t, isActive)
	assert.Equal(t, int64(0), totalDuration)
	require.True(t, endTime.Valid)
	assert.Equal(t, first.StartTime.UTC(), endTime.Time.UTC())
}

func TestGetOrCreateConcurrentSingleActiveRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.countActiveRows(t, "abc"))
}

func TestLockForIsStableAndBounded(t *testing.T) {
	f := newFixture(t)

	assert.Same(t, f.tracker.lockFor("abc"), f.tracker.lockFor("abc"))

	// The lock table is fixed-size, however many distinct ids come through.
	seen := make(map[*sync.Mutex]bool)
	for i := 0; i < 10*sessionLockStripes; i++ {
		seen[f.tracker.lockFor(fmt.Sprintf("session-%d", i))] = true
	}
	assert.LessOrEqual(t, len(seen), sessionLockStripes)
}

func TestFindAliveRespectsIdleWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.GetOrCreate(ctx, "abc", "hash", nil)
	require.NoError(t, err)

	alive, err := f.tracker.FindAlive(ctx, "abc")
	require.NoError(t, err)
	assert.NotNil(t, alive)

	f.clock.Advance(testIdleWindow + time.Second)

	alive, err = f.tracker.FindAlive(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, alive)
}
