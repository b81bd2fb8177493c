package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is satisfied by *service.ReconciliationService.
type Sweeper interface {
	SweepExpiredReservations(ctx context.Context, limit int) (int, error)
}

// ReservationSweeper resolves orders whose inventory reservations have
// expired, so abandoned checkouts give their capacity back.
type ReservationSweeper struct {
	recon    Sweeper
	interval time.Duration
	batch    int
}

func NewReservationSweeper(recon Sweeper, interval time.Duration, batch int) *ReservationSweeper {
	if batch < 1 {
		batch = 1
	}
	return &ReservationSweeper{recon: recon, interval: interval, batch: batch}
}

// Start blocks until ctx is cancelled.
func (w *ReservationSweeper) Start(ctx context.Context) {
	run(ctx, "reservation_sweeper", w.interval, false, func(ctx context.Context) { w.RunOnce(ctx) })
}

// RunOnce sweeps one batch and returns how many orders were resolved.
func (w *ReservationSweeper) RunOnce(ctx context.Context) int {
	n, err := w.recon.SweepExpiredReservations(ctx, w.batch)
	if err != nil {
		logrus.WithError(err).WithField("resolved", n).Error("reservation sweep failed")
		return n
	}
	if n > 0 {
		logrus.Infof("reservation sweep resolved %d orders", n)
	}
	return n
}
