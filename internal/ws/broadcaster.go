package ws

import (
	"context"
	"sync"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/service"
	"folio-analytics/pkg/logger"
)

// Broadcaster pushes a live stats snapshot to all hub clients on a fixed
// interval. It only queries when someone is listening.
type Broadcaster struct {
	hub      *Hub
	stats    service.StatsService
	logger   *logger.Logger
	interval time.Duration
	now      func() time.Time

	stopChannel chan struct{}
	mu          sync.Mutex
	isRunning   bool
}

// NewBroadcaster creates a new live stats broadcaster
func NewBroadcaster(hub *Hub, stats service.StatsService, logger *logger.Logger, interval time.Duration) *Broadcaster {
	return &Broadcaster{
		hub:         hub,
		stats:       stats,
		logger:      logger,
		interval:    interval,
		now:         time.Now,
		stopChannel: make(chan struct{}),
	}
}

// Start launches the broadcast loop. Idempotent.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isRunning {
		return
	}
	b.isRunning = true
	b.stopChannel = make(chan struct{})

	go b.run()
}

// Stop terminates the broadcast loop. Idempotent.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isRunning {
		return
	}
	close(b.stopChannel)
	b.isRunning = false
}

func (b *Broadcaster) run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.PushOnce(context.Background())
		case <-b.stopChannel:
			return
		}
	}
}

// PushOnce assembles and broadcasts one live stats snapshot. A snapshot with
// no listeners is skipped without touching the store.
func (b *Broadcaster) PushOnce(ctx context.Context) {
	if b.hub.ClientCount() == 0 {
		return
	}

	overview, err := b.stats.GetOverviewStats(ctx)
	if err != nil {
		b.logger.WithError(err).Error("Failed to load overview stats for broadcast")
		return
	}

	sessions, err := b.stats.GetActiveSessionStats(ctx)
	if err != nil {
		b.logger.WithError(err).Error("Failed to load session stats for broadcast")
		return
	}

	b.hub.Broadcast(MessageTypeLiveStats, &domain.LiveStats{
		Overview: overview,
		Sessions: sessions,
		SentAt:   b.now(),
	})
}
