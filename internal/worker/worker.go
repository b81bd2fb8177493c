// Package worker runs the periodic jobs of the marketplace: promoting
// matured seller earnings and sweeping expired inventory reservations.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// job is one tick of a periodic worker.
type job func(ctx context.Context)

// run calls fn every interval until ctx is cancelled.  With runFirst set the
// job also runs once at start-up so work left from a restart is not delayed
// a full interval.
func run(ctx context.Context, name string, interval time.Duration, runFirst bool, fn job) {
	if interval <= 0 {
		logrus.WithField("worker", name).Warn("worker disabled: non-positive interval")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logrus.WithFields(logrus.Fields{"worker": name, "interval": interval.String()})
	log.Info("worker started")
	if runFirst {
		fn(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
