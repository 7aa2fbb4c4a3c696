// Package publisher routes audit events to a store.
//
// Compliance events are always written synchronously and their failure is
// returned to the caller. Other events go through the async buffer when one
// is configured, and operations events may be sampled.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	audit "studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/audit/worker"
)

// ErrBufferFull is returned when an async event cannot be queued.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher is safe for concurrent use.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	sampler *Sampler
	clock   func() time.Time

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}
	closeOnce  sync.Once
	closeMu    sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer queues non-compliance events through a worker.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.bufferSize = size }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) { p.sampler = s }
}

func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) { p.clock = clock }
}

// NewPublisher starts the async worker when a buffer is configured; call Close
// to drain it.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger, p.metrics.incPersistFailures)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = event.Normalize(p.clock())

	if event.Category == audit.CategoryOperations && p.sampler != nil && !p.sampler.Keep(event.Action) {
		p.metrics.incSampled()
		return nil
	}

	if p.inbox == nil || event.Category == audit.CategoryCompliance {
		return p.appendSync(ctx, event)
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return p.appendSync(ctx, event)
	}
	select {
	case p.inbox <- event:
		p.metrics.incEmitted(string(event.Category))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.incDropped()
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
		return ErrBufferFull
	}
}

func (p *Publisher) appendSync(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incPersistFailures()
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"subject", event.Subject,
			"category", event.Category,
			"error", err,
		)
		return fmt.Errorf("audit append: %w", err)
	}
	p.metrics.incEmitted(string(event.Category))
	return nil
}

// List returns the events recorded for subject when the store supports reads.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, errors.New("audit store does not support listing")
	}
	return lister.ListBySubject(ctx, subject)
}

// Close drains queued events. Later emits are written synchronously.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.closeMu.Lock()
		p.closed = true
		close(p.inbox)
		p.closeMu.Unlock()
		<-p.done
	})
}
