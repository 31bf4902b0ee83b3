package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio-analytics/internal/domain"
	"folio-analytics/pkg/errors"
)

func intPtr(i int) *int { return &i }

func (f *fixture) engagementRow(t *testing.T, pagePath string) (duration int64, scrollDepth, interactions int) {
	t.Helper()

	err := f.db.Conn().QueryRowContext(context.Background(),
		`SELECT duration, scroll_depth, interaction_count FROM page_engagements WHERE page_path = ?`, pagePath,
	).Scan(&duration, &scrollDepth, &interactions)
	require.NoError(t, err)
	return duration, scrollDepth, interactions
}

func TestTrackActivityCreatesSessionAndEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog/post",
		InteractionType:  domain.InteractionClick,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.countActiveRows(t, "abc"))

	// The interaction that opened the engagement row is itself counted.
	_, _, interactions := f.engagementRow(t, "/blog/post")
	assert.Equal(t, 1, interactions)

	var endTimes int
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM page_engagements WHERE page_path = ? AND end_time IS NOT NULL`, "/blog/post").Scan(&endTimes)
	require.NoError(t, err)
	assert.Equal(t, 1, endTimes)

	var logged int
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_interactions WHERE page_path = ?`, "/blog/post").Scan(&logged)
	require.NoError(t, err)
	assert.Equal(t, 1, logged)
}

func TestTrackActivityAccumulatesInteractionCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
			BrowserSessionID: "abc",
			RawAddress:       "203.0.113.9",
			PagePath:         "/blog",
			InteractionType:  domain.InteractionClick,
		})
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)
	}

	duration, _, interactions := f.engagementRow(t, "/blog")
	assert.Equal(t, 3, interactions)
	assert.Equal(t, int64(20), duration)
}

func TestTrackActivityRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	err := f.engagement.TrackActivity(context.Background(), &domain.InteractionRequest{
		BrowserSessionID: "abc",
		PagePath:         "/blog",
		InteractionType:  "hover",
	})
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
}

func TestTrackActivitySustainsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog",
		InteractionType:  domain.InteractionScroll,
	})
	require.NoError(t, err)

	first, err := f.tracker.FindAlive(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, first)

	// 45s of silence, then another interaction inside the window.
	f.clock.Advance(45 * time.Second)
	err = f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog",
		InteractionType:  domain.InteractionScroll,
	})
	require.NoError(t, err)

	// Another 45s: past the original start but within the refreshed window.
	f.clock.Advance(45 * time.Second)
	alive, err := f.tracker.FindAlive(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, alive)
	assert.Equal(t, first.ID, alive.ID)
}

func TestScrollDepthRatchetsToMaximum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog",
		InteractionType:  domain.InteractionScroll,
	})
	require.NoError(t, err)

	for _, depth := range []int{10, 45, 30, 80} {
		err := f.engagement.UpdatePageEngagement(ctx, &domain.HeartbeatRequest{
			BrowserSessionID: "abc",
			PagePath:         "/blog",
			DurationSeconds:  5,
			ScrollDepth:      intPtr(depth),
		})
		require.NoError(t, err)
	}

	_, scrollDepth, _ := f.engagementRow(t, "/blog")
	assert.Equal(t, 80, scrollDepth)
}

func TestHeartbeatStoresClientDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog",
		InteractionType:  domain.InteractionClick,
	})
	require.NoError(t, err)

	err = f.engagement.UpdatePageEngagement(ctx, &domain.HeartbeatRequest{
		BrowserSessionID: "abc",
		PagePath:         "/blog",
		DurationSeconds:  42,
	})
	require.NoError(t, err)

	duration, _, _ := f.engagementRow(t, "/blog")
	assert.Equal(t, int64(42), duration)
}

func TestHeartbeatAfterExpiryIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackActivity(ctx, &domain.InteractionRequest{
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
		PagePath:         "/blog",
		InteractionType:  domain.InteractionClick,
	})
	require.NoError(t, err)

	f.clock.Advance(testIdleWindow + time.Second)

	err = f.engagement.UpdatePageEngagement(ctx, &domain.HeartbeatRequest{
		BrowserSessionID: "abc",
		PagePath:         "/blog",
		DurationSeconds:  999,
		ScrollDepth:      intPtr(100),
	})
	require.NoError(t, err)

	duration, scrollDepth, _ := f.engagementRow(t, "/blog")
	assert.NotEqual(t, int64(999), duration)
	assert.NotEqual(t, 100, scrollDepth)
}

func TestHeartbeatValidatesScrollDepthRange(t *testing.T) {
	f := newFixture(t)

	err := f.engagement.UpdatePageEngagement(context.Background(), &domain.HeartbeatRequest{
		BrowserSessionID: "abc",
		PagePath:         "/blog",
		ScrollDepth:      intPtr(120),
	})
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
}

func TestTrackExternalLinkClickExtractsDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engagement.TrackExternalLinkClick(ctx, &domain.ExternalLinkClickRequest{
		URL:              "https://github.com/someone/project",
		PagePath:         "/projects",
		BrowserSessionID: "abc",
		RawAddress:       "203.0.113.9",
	})
	require.NoError(t, err)

	var linkDomain string
	err = f.db.Conn().QueryRowContext(ctx,
		`SELECT domain FROM external_link_clicks WHERE page_path = ?`, "/projects").Scan(&linkDomain)
	require.NoError(t, err)
	assert.Equal(t, "github.com", linkDomain)
}

func TestTrackExternalLinkClickRejectsRelativeURL(t *testing.T) {
	f := newFixture(t)

	err := f.engagement.TrackExternalLinkClick(context.Background(), &domain.ExternalLinkClickRequest{
		URL:      "/not-absolute",
		PagePath: "/projects",
	})
	assert.Error(t, err)
}
