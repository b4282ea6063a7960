package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventpass/eventpass/internal/repository"
)

// OrphanSweeper periodically scans for tickets without a registration. The
// transactional admission path never produces them, so every hit is an
// invariant violation worth alerting on; the sweeper logs and repairs by
// deleting the orphan.
type OrphanSweeper struct {
	tickets  repository.TicketRepository
	interval time.Duration
	minAge   time.Duration
	log      *logrus.Logger
}

// NewOrphanSweeper constructs the sweeper. minAge keeps the sweep from
// touching tickets whose registration write may still be in flight.
func NewOrphanSweeper(tickets repository.TicketRepository, interval, minAge time.Duration, log *logrus.Logger) *OrphanSweeper {
	return &OrphanSweeper{
		tickets:  tickets,
		interval: interval,
		minAge:   minAge,
		log:      log,
	}
}

// Run sweeps until the context is cancelled.
func (w *OrphanSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("orphan sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OrphanSweeper) sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-w.minAge)
	orphans, err := w.tickets.FindOrphans(ctx, cutoff)
	if err != nil {
		w.log.WithError(err).Error("orphan scan failed")
		return 0
	}
	if len(orphans) == 0 {
		return 0
	}

	repaired := 0
	for _, t := range orphans {
		select {
		case <-ctx.Done():
			return repaired
		default:
		}

		w.log.WithFields(logrus.Fields{
			"ticket_id": t.ID,
			"event_id":  t.EventID,
			"issued_at": t.IssuedAt,
		}).Error("invariant violation: orphaned ticket without registration")

		if err := w.tickets.DeleteOrphan(ctx, t.ID); err != nil {
			w.log.WithError(err).WithField("ticket_id", t.ID).Error("orphan repair failed")
			continue
		}
		repaired++
	}

	w.log.WithField("repaired", repaired).Warn("orphaned tickets repaired")
	return repaired
}
