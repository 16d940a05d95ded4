package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MissedMarker marks overdue obligations.
type MissedMarker interface {
	SweepMissed(ctx context.Context, now time.Time) (int, error)
}

// MissedSweeper runs the ledger sweep on a fixed interval.
type MissedSweeper struct {
	ledger   MissedMarker
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewMissedSweeper(ledger MissedMarker, interval time.Duration, logger *zap.Logger) *MissedSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &MissedSweeper{ledger: ledger, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *MissedSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MissedSweeper) sweep(ctx context.Context) {
	n, err := w.ledger.SweepMissed(ctx, w.now())
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("missed obligation sweep failed", zap.Error(err))
		}
		return
	}
	w.logger.Debug("missed obligation sweep", zap.Int("marked", n))
}
