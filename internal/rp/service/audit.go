package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lockplane/passkeyd/internal/rp/domain"
	"github.com/lockplane/passkeyd/internal/rp/store"
	"github.com/lockplane/passkeyd/pkg/idx"
)

const defaultAuditBuffer = 256

// AuditRecorder appends security events to the durable audit log from a
// single background worker. Recording is fire-and-forget: a full queue drops
// the event with a warning rather than stalling a ceremony, and append
// failures are logged but never surfaced to callers.
type AuditRecorder struct {
	Store  store.Store
	Logger *slog.Logger

	queue  chan domain.AuditEvent
	stopCh chan struct{}
	doneCh chan struct{}

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

func NewAuditRecorder(st store.Store, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{
		Store:  st,
		Logger: logger,
		queue:  make(chan domain.AuditEvent, defaultAuditBuffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (r *AuditRecorder) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

// Record enqueues an event, assigning its id and timestamp if unset. It never
// blocks.
func (r *AuditRecorder) Record(event domain.AuditEvent) {
	if event.ID == "" {
		event.ID = idx.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	select {
	case r.queue <- event:
	default:
		r.Logger.Warn("audit queue full, dropping event",
			slog.String("kind", string(event.Kind)),
		)
	}
}

// Start launches the background writer.
func (r *AuditRecorder) Start() {
	go r.run()
}

// Stop drains any queued events and waits for the writer to exit.
func (r *AuditRecorder) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *AuditRecorder) run() {
	defer close(r.doneCh)
	for {
		select {
		case event := <-r.queue:
			r.append(event)
		case <-r.stopCh:
			r.drain()
			return
		}
	}
}

func (r *AuditRecorder) drain() {
	for {
		select {
		case event := <-r.queue:
			r.append(event)
		default:
			return
		}
	}
}

func (r *AuditRecorder) append(event domain.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Store.AuditEvents().AppendAuditEvent(ctx, event); err != nil {
		r.Logger.Error("failed to append audit event",
			slog.String("kind", string(event.Kind)),
			slog.Any("error", err),
		)
	}
}
