package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
)

const (
	DefaultMaxSize      = 1024
	DefaultRetryInitial = 10 * time.Millisecond
	DefaultRetryMax     = 5 * time.Second
)

// ErrStopped is returned by Drain when the queue stops with payloads left.
var ErrStopped = errors.New("relay queue stopped")

// Options configures a Queue. Zero values select the defaults; a zero
// SendTimeout means sends are not bounded.
type Options struct {
	MaxSize      int
	SendTimeout  time.Duration
	RetryInitial time.Duration
	RetryMax     time.Duration
	Registerer   prometheus.Registerer
}

// Queue is a bounded FIFO of payloads drained into a Sink by one worker.
// Delivery is at least once and in enqueue order: the head stays queued
// until a send of it succeeds.
type Queue struct {
	sink    Sink
	opts    Options
	metrics *metrics

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    [][]byte
	running  bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce  sync.Once
	discarded int
}

// NewQueue starts the drain worker. The queue owns sink and closes it in
// Stop; if NewQueue fails the caller still owns it.
func NewQueue(sink Sink, opts Options) (*Queue, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = DefaultRetryInitial
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = DefaultRetryMax
	}

	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register relay metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sink:    sink,
		opts:    opts,
		metrics: m,
		running: true,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	go q.run()
	return q, nil
}

// Enqueue appends payload and, while the queue holds more than MaxSize
// entries, waits for the worker to drain. It never fails. Payloads
// enqueued after Stop are dropped.
func (q *Queue) Enqueue(payload []byte) {
	item := make([]byte, len(payload))
	copy(item, payload)

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		q.metrics.Discarded.Inc()
		logger.L().Warnw("Relay queue stopped, dropping payload", "bytes", len(item))
		return
	}
	q.items = append(q.items, item)
	q.metrics.QueueDepth.Set(float64(len(q.items)))
	q.notEmpty.Signal()

	for len(q.items) > q.opts.MaxSize && q.running {
		q.notFull.Wait()
	}
}

// Len returns the number of queued payloads, including one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain waits until every queued payload has been delivered, ctx is done
// or the queue is stopped.
func (q *Queue) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.notFull.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) > 0 && q.running && ctx.Err() == nil {
		q.notFull.Wait()
	}
	if len(q.items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrStopped
}

// peek blocks until there is a head to send. It returns false once the
// queue is stopped.
func (q *Queue) peek() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.running {
		q.notEmpty.Wait()
	}
	if !q.running {
		return nil, false
	}
	return q.items[0], true
}

func (q *Queue) pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return
	}
	q.items[0] = nil
	q.items = q.items[1:]
	q.metrics.QueueDepth.Set(float64(len(q.items)))
	q.notFull.Broadcast()
}

// send runs detached from q.ctx so that Stop lets an attempt already
// under way finish. SendTimeout is the only bound on it.
func (q *Queue) send(payload []byte) error {
	ctx := context.Background()
	if q.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opts.SendTimeout)
		defer cancel()
	}
	if err := q.sink.Send(ctx, payload); err != nil {
		q.metrics.Sends.WithLabelValues(ResultFailure).Inc()
		return err
	}
	q.metrics.Sends.WithLabelValues(ResultSuccess).Inc()
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = q.opts.RetryInitial
	eb.MaxInterval = q.opts.RetryMax
	eb.MaxElapsedTime = 0 // retry indefinitely
	bkoff := backoff.WithContext(eb, q.ctx)

	for {
		head, ok := q.peek()
		if !ok {
			return
		}
		// Retry resets the backoff on entry, so every head starts from
		// the initial interval.
		err := backoff.RetryNotify(func() error {
			if err := q.ctx.Err(); err != nil {
				return backoff.Permanent(err)
			}
			return q.send(head)
		}, bkoff, func(err error, next time.Duration) {
			logger.L().Warnw("Relay send failed, retrying same payload",
				"error", err,
				"retry_in", next,
				"bytes", len(head))
		})
		if err != nil {
			// stopped while failing or waiting to retry
			return
		}
		q.pop()
	}
}

// Stop halts the worker, discards what is still queued, releases blocked
// producers and closes the sink. A send already under way is allowed to
// finish, bounded by SendTimeout; a pending retry wait is cut short. A head
// delivered by that last send is not counted as discarded. Stop returns the
// number of discarded payloads and is safe to call more than once.
func (q *Queue) Stop() int {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.running = false
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
		q.mu.Unlock()

		q.cancel()
		<-q.done

		q.mu.Lock()
		q.discarded = len(q.items)
		q.items = nil
		q.mu.Unlock()

		q.metrics.QueueDepth.Set(0)
		q.metrics.Discarded.Add(float64(q.discarded))
		if q.discarded > 0 {
			logger.L().Warnw("Relay queue stopped with unsent payloads", "discarded", q.discarded)
		}
		if err := q.sink.Close(); err != nil {
			logger.L().Errorw("Failed to close relay sink", "error", err)
		}
		logger.L().Infow("Relay queue stopped")
	})
	return q.discarded
}
