package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studyflow-backend/internal/repository"
)

const (
	// Sessions that never received a heartbeat and carry no time are noise
	// from aborted starts.
	zeroDurationRetention = 24 * time.Hour

	// A running session without heartbeats for this long is a dead client.
	abandonedCutoff = time.Hour

	// Ceiling on the duration credited to an abandoned session. Matches the
	// client-side cap for stale checkpoints, so a crashed tab never inflates
	// a topic's total.
	abandonedCapMs = int64(3_600_000)
)

// Sweeper closes sessions abandoned by dead clients and prunes zero-duration
// rows. The client normally finalizes its own sessions; this is the backstop
// for crashes and dropped connections.
type Sweeper struct {
	sessions *repository.TimeSessionRepo
	interval time.Duration
	stopChan chan struct{}
}

func NewSweeper(sessions *repository.TimeSessionRepo, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.loop()
	zap.L().Info("session sweeper started", zap.Duration("interval", s.interval))
}

func (s *Sweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Sweeper) loop() {
	// Run on startup as well as by interval.
	s.sweep(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(context.Background())
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	closed, err := s.sessions.CloseAbandoned(ctx, abandonedCutoff, abandonedCapMs)
	if err != nil {
		zap.L().Error("close abandoned sessions", zap.Error(err))
	} else if closed > 0 {
		zap.L().Info("closed abandoned sessions", zap.Int64("count", closed))
	}

	pruned, err := s.sessions.DeleteZeroDuration(ctx, zeroDurationRetention)
	if err != nil {
		zap.L().Error("prune zero-duration sessions", zap.Error(err))
	} else if pruned > 0 {
		zap.L().Info("pruned zero-duration sessions", zap.Int64("count", pruned))
	}
}
