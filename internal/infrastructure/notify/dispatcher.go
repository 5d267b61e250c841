// Package notify delivers password reset mail through a bounded worker pool.
package notify

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/boilerplate/user-service/internal/api/metrics"
	"github.com/boilerplate/user-service/internal/core/ports"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// ErrQueueFull is returned by NotifyPasswordReset when every worker is backed up.
var ErrQueueFull = errors.New("notification queue is full")

// Sender performs the actual delivery of one notice.
type Sender interface {
	Send(ctx context.Context, notice ports.PasswordResetNotice) error
}

// Options bounds the dispatcher.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher implements ports.Notifier. Callers never wait on delivery: a
// notice is queued or rejected immediately, and each send is bounded by
// SendTimeout so a stalled provider only ties up a worker.
type Dispatcher struct {
	queue   chan ports.PasswordResetNotice
	sender  Sender
	workers int
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher; non-positive options fall back to defaults.
func NewDispatcher(sender Sender, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &Dispatcher{
		queue:   make(chan ports.PasswordResetNotice, opts.QueueSize),
		sender:  sender,
		workers: opts.Workers,
		timeout: opts.SendTimeout,
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// Start launches the worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// NotifyPasswordReset queues notice without blocking.
func (d *Dispatcher) NotifyPasswordReset(_ context.Context, notice ports.PasswordResetNotice) error {
	select {
	case d.queue <- notice:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notice := <-d.queue:
			metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
			d.deliver(ctx, id, notice)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, notice ports.PasswordResetNotice) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, notice); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("worker_id", strconv.Itoa(id)).
			Msg("password reset notification failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}
