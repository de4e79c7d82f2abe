package api

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// Event recorder defaults.
const (
	DefaultEventBuffer    = 1024
	DefaultEventBatchSize = 100
	DefaultFlushInterval  = 5 * time.Second

	shutdownFlushTimeout = 5 * time.Second
)

// EventRecorder writes build events to a BuildEventStore in batches, off
// the request path. Events are dropped when the buffer is full.
type EventRecorder struct {
	store         storage.BuildEventStore
	events        chan *domain.BuildEvent
	batchSize     int
	flushInterval time.Duration
	log           zerolog.Logger

	dropped atomic.Int64
}

// EventRecorderOptions configures NewEventRecorder. Zero values select defaults.
type EventRecorderOptions struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
}

// NewEventRecorder creates a recorder. Call Run to start flushing.
func NewEventRecorder(store storage.BuildEventStore, log zerolog.Logger, opts EventRecorderOptions) *EventRecorder {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultEventBuffer
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultEventBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	return &EventRecorder{
		store:         store,
		events:        make(chan *domain.BuildEvent, opts.Buffer),
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
		log:           log.With().Str("component", "build_events").Logger(),
	}
}

// Record queues ev. Returns false if the buffer is full.
func (r *EventRecorder) Record(ev *domain.BuildEvent) bool {
	select {
	case r.events <- ev:
		return true
	default:
		if n := r.dropped.Add(1); n == 1 || n%1000 == 0 {
			r.log.Warn().Int64("dropped", n).Msg("build event buffer full")
		}
		return false
	}
}

// Dropped returns how many events were discarded.
func (r *EventRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run flushes queued events until ctx is done, then flushes what is left.
func (r *EventRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*domain.BuildEvent, 0, r.batchSize)
	for {
		select {
		case <-ctx.Done():
			batch = r.drain(batch)
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			r.flush(flushCtx, batch)
			cancel()
			return ctx.Err()

		case ev := <-r.events:
			batch = append(batch, ev)
			if len(batch) >= r.batchSize {
				r.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *EventRecorder) drain(batch []*domain.BuildEvent) []*domain.BuildEvent {
	for {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

func (r *EventRecorder) flush(ctx context.Context, batch []*domain.BuildEvent) {
	if len(batch) == 0 {
		return
	}
	err := r.store.InsertBulk(ctx, batch)
	switch {
	case err == nil:
		r.log.Debug().Int("events", len(batch)).Msg("build events flushed")
	case errors.Is(err, storage.ErrDuplicateKey):
		// Rare; the batch is retried one by one so only the duplicate is lost.
		for _, ev := range batch {
			if err := r.store.Insert(ctx, ev); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				r.log.Error().Err(err).Str("event_id", ev.EventID).Msg("insert build event")
			}
		}
	default:
		r.log.Error().Err(err).Int("events", len(batch)).Msg("flush build events")
	}
}
