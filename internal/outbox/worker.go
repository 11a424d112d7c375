package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conduit/internal/platform/metrics"
	"conduit/pkg/platform/circuit"
)

const (
	publishBatchSize = 100

	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// Worker drains pending events to the publisher on a fixed interval. Publish
// failures leave events unpublished so the next tick retries them; repeated
// failures open a circuit breaker so a dead broker is probed on a cooldown
// instead of hammered every tick.
type Worker struct {
	store    Store
	pub      Publisher
	log      *slog.Logger
	metrics  *metrics.Metrics
	breaker  *circuit.Breaker
	interval time.Duration
}

func NewWorker(store Store, pub Publisher, log *slog.Logger, m *metrics.Metrics, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		store:    store,
		pub:      pub,
		log:      log,
		metrics:  m,
		breaker:  circuit.New(breakerThreshold, breakerCooldown),
		interval: interval,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.log.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes all pending events in batches until none remain.
func (w *Worker) Drain(ctx context.Context) error {
	if !w.breaker.Allow() {
		w.log.Debug("outbox circuit open, skipping drain")
		return nil
	}
	for {
		events, err := w.store.ListUnpublished(ctx, publishBatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			if w.metrics != nil {
				w.metrics.OutboxPending.Set(0)
			}
			return nil
		}
		if err := w.pub.Publish(ctx, events); err != nil {
			w.breaker.RecordFailure()
			if w.metrics != nil {
				w.metrics.OutboxFailed.Add(float64(len(events)))
				w.metrics.OutboxPending.Set(float64(len(events)))
			}
			return err
		}
		w.breaker.RecordSuccess()
		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if err := w.store.MarkPublished(ctx, ids); err != nil {
			return err
		}
		if w.metrics != nil {
			w.metrics.OutboxPublished.Add(float64(len(events)))
		}
		w.log.Debug("published transfer events", "count", len(events))
	}
}
