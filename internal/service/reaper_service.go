package service

import (
	"context"
	"sync"
	"time"

	"folio-analytics/internal/repository"
	"folio-analytics/pkg/logger"
)

// reaperService closes out idle active sessions on a fixed interval so
// abandoned tabs do not stay "active" forever.
type reaperService struct {
	sessionRepo repository.SessionRepository
	visitRepo   repository.VisitRepository
	logger      *logger.Logger
	idleWindow  time.Duration
	interval    time.Duration
	now         func() time.Time

	stopChannel chan struct{}
	mu          sync.Mutex
	isRunning   bool
}

// NewReaperService creates a new idle session reaper
func NewReaperService(sessionRepo repository.SessionRepository, visitRepo repository.VisitRepository, logger *logger.Logger, idleWindow, interval time.Duration) ReaperService {
	return &reaperService{
		sessionRepo: sessionRepo,
		visitRepo:   visitRepo,
		logger:      logger,
		idleWindow:  idleWindow,
		interval:    interval,
		now:         time.Now,
		stopChannel: make(chan struct{}),
	}
}

// Start launches the background sweep loop. Calling Start on a running
// reaper is a no-op.
func (s *reaperService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Warn("Session reaper is already running")
		return nil
	}

	s.isRunning = true
	s.stopChannel = make(chan struct{})

	go s.run()

	s.logger.WithFields(map[string]interface{}{
		"interval":    s.interval.String(),
		"idle_window": s.idleWindow.String(),
	}).Info("Session reaper started")

	return nil
}

// Stop terminates the sweep loop. Calling Stop on a stopped reaper is a no-op.
func (s *reaperService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	close(s.stopChannel)
	s.isRunning = false

	s.logger.Info("Session reaper stopped")
	return nil
}

func (s *reaperService) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First sweep happens right away so a restart does not leave stale
	// sessions open for a full interval.
	if _, err := s.SweepOnce(context.Background()); err != nil {
		s.logger.WithError(err).Error("Session sweep failed")
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(context.Background()); err != nil {
				s.logger.WithError(err).Error("Session sweep failed")
			}
		case <-s.stopChannel:
			return
		}
	}
}

// SweepOnce closes every active session idle past the window and, when any
// closed, refreshes the per-page average durations from the finalized
// engagement rows.
func (s *reaperService) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.idleWindow)

	closed, err := s.sessionRepo.CloseExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if closed == 0 {
		return 0, nil
	}

	if err := s.visitRepo.RefreshPageDurations(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to refresh page durations after sweep")
	}

	s.logger.WithField("closed", closed).Debug("Closed idle sessions")
	return closed, nil
}
