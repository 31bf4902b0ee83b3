package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/repository"
	"folio-analytics/pkg/logger"
)

// sessionLockStripes sizes the lock table. Ids are hashed onto stripes, so
// memory stays fixed no matter how many browser sessions the process sees.
const sessionLockStripes = 256

// trackerService implements the active session state machine on top of the
// session repository.
type trackerService struct {
	sessionRepo repository.SessionRepository
	logger      *logger.Logger
	idleWindow  time.Duration

	// sessionLocks serializes the check-then-insert sequence per browser
	// session id so two concurrent calls cannot both decide "no alive
	// session" and insert competing rows. Striped: unrelated ids may share
	// a stripe and serialize needlessly, which is harmless.
	sessionLocks [sessionLockStripes]sync.Mutex

	// now is injectable so liveness is testable without a live clock.
	now func() time.Time
}

// NewTrackerService creates a new session tracker
func NewTrackerService(sessionRepo repository.SessionRepository, logger *logger.Logger, idleWindow time.Duration) SessionTracker {
	return &trackerService{
		sessionRepo: sessionRepo,
		logger:      logger,
		idleWindow:  idleWindow,
		now:         time.Now,
	}
}

// lockFor returns the stripe guarding one browser session id.
func (s *trackerService) lockFor(browserSessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(browserSessionID))
	return &s.sessionLocks[h.Sum32()%sessionLockStripes]
}

// GetOrCreate returns the alive active session for the browser session. An
// alive row is returned untouched; otherwise any stale row is superseded and
// a fresh one inserted. Safe to call concurrently for the same id.
func (s *trackerService) GetOrCreate(ctx context.Context, browserSessionID, identityHash string, userAgent *string) (*domain.ActiveSession, error) {
	mu := s.lockFor(browserSessionID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	session, err := s.sessionRepo.FindAliveSession(ctx, browserSessionID, now.Add(-s.idleWindow))
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	session, err = s.sessionRepo.RotateActiveSession(ctx, browserSessionID, identityHash, userAgent, now)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"active_session_id":  session.ID,
		"browser_session_id": browserSessionID,
	}).Debug("Started new active session")

	return session, nil
}

// FindAlive is the read-only liveness probe used for visit classification.
func (s *trackerService) FindAlive(ctx context.Context, browserSessionID string) (*domain.ActiveSession, error) {
	return s.sessionRepo.FindAliveSession(ctx, browserSessionID, s.now().Add(-s.idleWindow))
}
