package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull   = errors.New("tracking queue full")
	ErrQueueClosed = errors.New("tracking queue closed")
)

type BatchStore interface {
	AppendBatch(ctx context.Context, clicks []internal.Click) error
}

type QueueConfig struct {
	Size          int
	BatchSize     int
	FlushInterval time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Size <= 0 {
		c.Size = 1000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	return c
}

// Queue buffers clicks in memory and writes them in batches from a single
// worker. Clicks still buffered when the process dies are lost; Close drains
// the buffer first.
type Queue struct {
	builder *Builder
	store   BatchStore
	metrics *metrics.Metrics
	cfg     QueueConfig

	mu     sync.RWMutex
	closed bool
	clicks chan internal.Click
	done   chan struct{}
}

func NewQueue(store BatchStore, builder *Builder, m *metrics.Metrics, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	q := &Queue{
		builder: builder,
		store:   store,
		metrics: m,
		cfg:     cfg,
		clicks:  make(chan internal.Click, cfg.Size),
		done:    make(chan struct{}),
	}
	go q.worker()
	return q
}

// Track builds the click now, so its timestamp is the request time, and
// enqueues it without blocking.
func (q *Queue) Track(_ context.Context, linkID string, s internal.Signals) error {
	click := q.builder.Build(linkID, s)

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.metrics.ClicksDropped.Inc()
		return ErrQueueClosed
	}

	select {
	case q.clicks <- click:
		return nil
	default:
		q.metrics.ClicksDropped.Inc()
		log.Warn().Str("link_id", linkID).Msg("tracking queue full, dropping click")
		return ErrQueueFull
	}
}

// Close stops accepting clicks and waits until everything buffered has been
// flushed or ctx expires.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.clicks)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer close(q.done)

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	buffer := make([]internal.Click, 0, q.cfg.BatchSize)
	for {
		select {
		case click, ok := <-q.clicks:
			if !ok {
				q.flush(buffer)
				return
			}
			buffer = append(buffer, click)
			if len(buffer) >= q.cfg.BatchSize {
				q.flush(buffer)
				buffer = buffer[:0]
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				q.flush(buffer)
				buffer = buffer[:0]
			}
		}
	}
}

func (q *Queue) flush(batch []internal.Click) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	if err := q.store.AppendBatch(ctx, batch); err != nil {
		q.metrics.ClicksFailed.Add(float64(len(batch)))
		log.Error().Err(err).Int("count", len(batch)).Msg("failed to flush click batch")
		return
	}
	q.metrics.ClicksRecorded.Add(float64(len(batch)))
}
