package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/pkg/database"
	"folio-analytics/pkg/logger"
)

// fakeClock is a manually advanced clock shared by the services under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubGeo returns a fixed location without any network traffic.
type stubGeo struct {
	loc domain.GeoLocation
}

func (s stubGeo) Resolve(ctx context.Context, rawAddress string) domain.GeoLocation {
	return s.loc
}

// fixture wires the full service stack over a fresh in-memory store.
type fixture struct {
	db         *database.DB
	repos      *repository.Repositories
	clock      *fakeClock
	tracker    *trackerService
	visit      *visitService
	engagement *engagementService
	reaper     *reaperService
	stats      *statsService
}

const (
	testIdleWindow     = 60 * time.Second
	testReaperInterval = 30 * time.Second
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.NewNop()
	clock := newFakeClock()

	repos := &repository.Repositories{
		Session:    repository.NewSessionRepository(db),
		Visit:      repository.NewVisitRepository(db),
		Engagement: repository.NewEngagementRepository(db),
		Link:       repository.NewLinkRepository(db),
		Stats:      repository.NewStatsRepository(db),
	}

	tracker := NewTrackerService(repos.Session, log, testIdleWindow).(*trackerService)
	tracker.now = clock.Now

	visit := NewVisitService(tracker, repos.Session, repos.Visit, stubGeo{}, log).(*visitService)
	visit.now = clock.Now

	engagement := NewEngagementService(tracker, repos.Session, repos.Engagement, repos.Link, log).(*engagementService)
	engagement.now = clock.Now

	reaper := NewReaperService(repos.Session, repos.Visit, log, testIdleWindow, testReaperInterval).(*reaperService)
	reaper.now = clock.Now

	stats := NewStatsService(repos.Stats, log, testIdleWindow).(*statsService)
	stats.now = clock.Now

	return &fixture{
		db:         db,
		repos:      repos,
		clock:      clock,
		tracker:    tracker,
		visit:      visit,
		engagement: engagement,
		reaper:     reaper,
		stats:      stats,
	}
}

// countActiveRows counts is_active rows for one browser session.
func (f *fixture) countActiveRows(t *testing.T, browserSessionID string) int {
	t.Helper()

	var count int
	err := f.db.Conn().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM active_sessions WHERE browser_session_id = ? AND is_active`,
		browserSessionID,
	).Scan(&count)
	require.NoError(t, err)
	return count
}
