package audit

import (
	"context"
	"log/slog"
	"time"
)

const defaultDrainTimeout = 5 * time.Second

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store        Store
	inbox        <-chan Event
	logger       *slog.Logger
	drainTimeout time.Duration
}

type WorkerOption func(*Worker)

// WithDrainTimeout bounds how long shutdown spends flushing buffered events.
func WithDrainTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.drainTimeout = d
		}
	}
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: logger, drainTimeout: defaultDrainTimeout}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox until ctx is cancelled. A failed append is logged and
// the event dropped so one bad sink call cannot stall the pipeline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.drainTimeout)
			w.drain(drainCtx)
			cancel()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

// drain flushes whatever is already buffered until the inbox is empty or ctx
// expires. Events left behind after expiry are counted and dropped.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			w.logger.Warn("audit drain timed out", "dropped", len(w.inbox))
			return
		}
		select {
		case event := <-w.inbox:
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"subject", event.Subject,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}
