package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Promoter is satisfied by *service.Ledger.
type Promoter interface {
	PromoteMatured(ctx context.Context, now time.Time) (int64, error)
}

// EarningsPromoter moves PENDING earnings to AVAILABLE once their holding
// period has passed.
type EarningsPromoter struct {
	ledger   Promoter
	interval time.Duration
	now      func() time.Time
}

func NewEarningsPromoter(ledger Promoter, interval time.Duration) *EarningsPromoter {
	return &EarningsPromoter{ledger: ledger, interval: interval, now: time.Now}
}

// Start blocks until ctx is cancelled.
func (w *EarningsPromoter) Start(ctx context.Context) {
	run(ctx, "earnings_promoter", w.interval, true, func(ctx context.Context) { w.RunOnce(ctx) })
}

// RunOnce performs a single promotion pass and returns how many earnings
// became available.
func (w *EarningsPromoter) RunOnce(ctx context.Context) int64 {
	n, err := w.ledger.PromoteMatured(ctx, w.now().UTC())
	if err != nil {
		logrus.WithError(err).Error("earnings promotion failed")
		return 0
	}
	if n > 0 {
		logrus.Debugf("promoted %d earnings", n)
	}
	return n
}
