// Package notify delivers device arrival notifications to administrators.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gajzzs/usbwarden/internal/logging"
	"github.com/gajzzs/usbwarden/internal/registry"
)

const (
	DefaultQueueSize   = 64
	DefaultSendTimeout = 30 * time.Second
)

var ErrQueueClosed = errors.New("notification queue is closed")

// Sender delivers one notification over a single channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, rec registry.DeviceRecord) error
}

// Queue hands records to a background worker so slow channels never block
// hotplug handling. It implements registry.Notifier.
type Queue struct {
	senders []Sender
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	ch     chan registry.DeviceRecord
	done   chan struct{}
}

type QueueOption func(*Queue)

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan registry.DeviceRecord, n)
		}
	}
}

func WithSendTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts the worker. Close must be called to stop it.
func NewQueue(senders []Sender, logger zerolog.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		senders: senders,
		timeout: DefaultSendTimeout,
		logger:  logging.WithCategory(logger, logging.CategoryNotify),
		ch:      make(chan registry.DeviceRecord, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}

	go q.run()
	return q
}

// Notify enqueues rec. A full or closed queue drops it with a warning.
func (q *Queue) Notify(rec registry.DeviceRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Warn().Str("device_id", rec.DeviceID).Err(ErrQueueClosed).Msg("Dropping notification")
		return
	}

	select {
	case q.ch <- rec:
	default:
		q.logger.Warn().Str("device_id", rec.DeviceID).Int("capacity", cap(q.ch)).Msg("Notification queue full, dropping notification")
	}
}

// Close stops accepting records and waits for queued ones to be sent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for rec := range q.ch {
		q.deliver(rec)
	}
}

func (q *Queue) deliver(rec registry.DeviceRecord) {
	for _, s := range q.senders {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := s.Send(ctx, rec)
		cancel()

		if err != nil {
			q.logger.Error().Err(err).
				Str("channel", s.Name()).
				Str("device_id", rec.DeviceID).
				Msg("Failed to send notification")
			continue
		}
		q.logger.Info().
			Str("channel", s.Name()).
			Str("device_id", rec.DeviceID).
			Msg("Notification sent")
	}
}
