package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/observability"
)

// Sweeper fails overdue proposals.
type Sweeper interface {
	SweepOverdue(ctx context.Context) ([]domain.Proposal, error)
}

// OverdueSweeper runs the overdue sweep on a fixed interval, in addition to
// the sweep every proposal list performs.
type OverdueSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewOverdueSweeper builds a sweeper; Run returns immediately when interval is not positive.
func NewOverdueSweeper(sweeper Sweeper, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *OverdueSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{sweeper: sweeper, interval: interval, logger: logger, metrics: metrics}
}

// Run sweeps once per tick until ctx is cancelled.
func (s *OverdueSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("overdue sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one sweep.
func (s *OverdueSweeper) Tick(ctx context.Context) {
	failed, err := s.sweeper.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	s.metrics.RecordExpired(len(failed))
	if len(failed) > 0 {
		s.logger.Info("overdue proposals failed", zap.Int("count", len(failed)))
	}
}
