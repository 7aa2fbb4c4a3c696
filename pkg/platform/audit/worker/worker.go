package worker

import (
	"context"
	"log/slog"

	audit "studentreg/pkg/platform/audit"
)

// Worker drains queued events into a store. A failed append is logged and
// reported through onFailure; the worker keeps going.
type Worker struct {
	store     audit.Store
	inbox     <-chan audit.Event
	logger    *slog.Logger
	onFailure func()
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, onFailure func()) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if onFailure == nil {
		onFailure = func() {}
	}
	return &Worker{store: store, inbox: inbox, logger: logger, onFailure: onFailure}
}

// Run returns nil once the inbox is closed and drained, or ctx.Err() when
// cancelled first.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.onFailure()
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
