package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/pkg/errors"
	"folio-analytics/pkg/logger"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// deniedKeywords matches mutating or schema-changing SQL keywords on word
// boundaries, so column names like "created_at" pass but "DROP TABLE" does
// not. This is keyword gating, not a SQL parser: a clever read-only query may
// still be rejected, which is the safe direction to fail.
var deniedKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|create|alter|truncate|attach|copy|exec|pragma|grant|revoke)\b`)

// statsService wraps the read-only reporting repository.
type statsService struct {
	statsRepo  repository.StatsRepository
	logger     *logger.Logger
	idleWindow time.Duration
	now        func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(statsRepo repository.StatsRepository, logger *logger.Logger, idleWindow time.Duration) StatsService {
	return &statsService{
		statsRepo:  statsRepo,
		logger:     logger,
		idleWindow: idleWindow,
		now:        time.Now,
	}
}

// clampLimit normalizes caller-supplied result limits.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (s *statsService) GetOverviewStats(ctx context.Context) (*domain.OverviewStats, error) {
	return s.statsRepo.Overview(ctx)
}

func (s *statsService) GetTopPages(ctx context.Context, limit int) ([]*domain.Page, error) {
	return s.statsRepo.TopPages(ctx, clampLimit(limit))
}

func (s *statsService) GetVisitorLocations(ctx context.Context, limit int) ([]domain.LocationStat, error) {
	return s.statsRepo.VisitorLocations(ctx, clampLimit(limit))
}

func (s *statsService) GetRecentVisits(ctx context.Context, limit int) ([]*domain.Visit, error) {
	return s.statsRepo.RecentVisits(ctx, clampLimit(limit))
}

func (s *statsService) GetTopExternalLinks(ctx context.Context, limit int) ([]domain.LinkStat, error) {
	return s.statsRepo.TopExternalLinks(ctx, clampLimit(limit))
}

func (s *statsService) GetExternalLinksByPage(ctx context.Context, limit int) ([]domain.PageLinkStat, error) {
	return s.statsRepo.ExternalLinksByPage(ctx, clampLimit(limit))
}

func (s *statsService) GetRecentExternalLinks(ctx context.Context, limit int) ([]*domain.ExternalLinkClick, error) {
	return s.statsRepo.RecentExternalLinks(ctx, clampLimit(limit))
}

func (s *statsService) GetActiveSessionStats(ctx context.Context) (*domain.ActiveSessionStats, error) {
	return s.statsRepo.ActiveSessionStats(ctx, s.now().Add(-s.idleWindow))
}

func (s *statsService) GetRecentActiveSessions(ctx context.Context, limit int) ([]*domain.ActiveSession, error) {
	return s.statsRepo.RecentActiveSessions(ctx, clampLimit(limit))
}

// ExecuteReadOnlyQuery gates and runs one caller-supplied SELECT.
func (s *statsService) ExecuteReadOnlyQuery(ctx context.Context, query string) (*domain.QueryResult, error) {
	if err := vetReadOnlyQuery(query); err != nil {
		s.logger.WithField("query", query).Warn("Rejected ad-hoc query")
		return nil, err
	}
	return s.statsRepo.ExecuteReadOnly(ctx, query)
}

// vetReadOnlyQuery rejects anything that is not a single SELECT statement
// free of mutating keywords.
func vetReadOnlyQuery(query string) error {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if trimmed == "" {
		return errors.NewValidationError("query is required", nil)
	}
	if strings.Contains(trimmed, ";") {
		return errors.NewForbiddenOperationError("only a single statement is allowed")
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return errors.NewForbiddenOperationError("only SELECT statements are allowed")
	}
	if match := deniedKeywords.FindString(trimmed); match != "" {
		return errors.NewForbiddenOperationError("query contains a forbidden keyword: " + strings.ToLower(match))
	}
	return nil
}
