package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-analytics/internal/domain"
)

func strPtr(s string) *string { return &s }

func (f *fixture) pageCounts(t *testing.T, path string) (total, unique int64) {
	t.Helper()

	err := f.db.Conn().QueryRowContext(context.Background(),
		`SELECT total_visit_count, unique_visitor_count FROM pages WHERE path = ?`, path,
	).Scan(&total, &unique)
	require.NoError(t, err)
	return total, unique
}

func (f *fixture) visitCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	err := f.db.Conn().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM visits`).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestTrackVisitIssuesBrowserSessionID(t *testing.T) {
	f := newFixture(t)

	id, err := f.visit.TrackVisit(context.Background(), &domain.PageLoadRequest{
		Path:       "/about",
		RawAddress: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestTrackVisitRequiresPath(t *testing.T) {
	f := newFixture(t)

	_, err := f.visit.TrackVisit(context.Background(), &domain.PageLoadRequest{})
	assert.Error(t, err)
}

// Mirrors a full browsing burst: first load is a new visit, a second load on
// another page within the idle window is internal navigation, and the browser
// session rollup counts both loads.
func TestTrackVisitNewVisitThenInternalNavigation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.visitCount(t))
	total, unique := f.pageCounts(t, "/about")
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), unique)

	f.clock.Advance(10 * time.Second)

	_, err = f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/blog",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	// No new visit row, but the first sight of /blog still registers once.
	assert.Equal(t, int64(1), f.visitCount(t))
	total, _ = f.pageCounts(t, "/blog")
	assert.Equal(t, int64(1), total)

	var pageCount int64
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT page_count FROM browser_sessions WHERE id = ?`, "abc").Scan(&pageCount)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pageCount)

	assert.Equal(t, 1, f.countActiveRows(t, "abc"))
}

func TestTrackVisitAfterIdleWindowIsNewVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	f.clock.Advance(testIdleWindow + time.Second)

	_, err = f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.visitCount(t))

	// Same identity revisiting the same page: total climbs, unique does not.
	total, unique := f.pageCounts(t, "/about")
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), unique)
}

func TestTrackVisitUniqueVisitorPerIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	_, err = f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "xyz",
		RawAddress:       "198.51.100.7",
	})
	require.NoError(t, err)

	total, unique := f.pageCounts(t, "/about")
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(2), unique)
}

func TestBrowserSessionGeoFirstWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.visit.geo = stubGeo{loc: domain.GeoLocation{Country: strPtr("US")}}
	_, err := f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	f.clock.Advance(testIdleWindow + time.Second)

	f.visit.geo = stubGeo{loc: domain.GeoLocation{Country: strPtr("DE")}}
	_, err = f.visit.TrackVisit(ctx, &domain.PageLoadRequest{
		Path:             "/about",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	var country string
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT country FROM browser_sessions WHERE id = ?`, "abc").Scan(&country)
	require.NoError(t, err)
	assert.Equal(t, "US", country)
}
