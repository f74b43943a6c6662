package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
	"github.com/vaibhaw-/beholdr/internal/beholdr/relay"
)

// Options wires the index and the relay together.
type Options struct {
	// Destination is a sink descriptor, see relay.NewSink.
	Destination string
	Queue       relay.Options
	Index       index.Options
	Registerer  prometheus.Registerer
}

// Pipeline classifies every observed record and relays its serialized
// form to the configured sink.
type Pipeline struct {
	index *index.Index
	queue *relay.Queue
}

// New builds index, sink and queue in that order. On failure everything
// already built is released.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Index.Warmup < 0 {
		return nil, errors.New("warm-up window must not be negative")
	}
	if opts.Registerer != nil {
		opts.Queue.Registerer = opts.Registerer
		opts.Index.Registerer = opts.Registerer
	}

	idx, err := index.New(opts.Index)
	if err != nil {
		return nil, err
	}

	sink, err := relay.NewSink(ctx, opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}

	queue, err := relay.NewQueue(sink, opts.Queue)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("create relay queue: %w", err)
	}

	logger.L().Infow("Pipeline started",
		"destination", opts.Destination,
		"max_queue_size", opts.Queue.MaxSize,
		"warmup", opts.Index.Warmup)
	return &Pipeline{index: idx, queue: queue}, nil
}

// FromConfig builds a pipeline from the loaded configuration.
func FromConfig(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Pipeline, error) {
	return New(ctx, Options{
		Destination: cfg.Relay.Destination,
		Queue: relay.Options{
			MaxSize:      cfg.Relay.MaxQueueSize,
			SendTimeout:  cfg.Relay.SendTimeout,
			RetryInitial: cfg.Relay.RetryInitial,
			RetryMax:     cfg.Relay.RetryMax,
		},
		Index: index.Options{
			Warmup: cfg.Warmup(),
		},
		Registerer: reg,
	})
}

// Observe classifies rec, then enqueues its serialized form. It never
// fails; it may block while the relay queue is over capacity.
func (p *Pipeline) Observe(rec *record.Record) index.Result {
	res := p.index.Classify(rec)
	p.queue.Enqueue(rec.Bytes())
	return res
}

// ShowData returns the index snapshot in first-seen order.
func (p *Pipeline) ShowData() []index.Entry {
	return p.index.Snapshot()
}

// ClearData resets the index.
func (p *Pipeline) ClearData() {
	p.index.Reset()
}

func (p *Pipeline) Stats() index.Stats {
	return p.index.Stats()
}

// Pending returns the number of payloads not yet delivered.
func (p *Pipeline) Pending() int {
	return p.queue.Len()
}

// Flush waits until every observed record has been delivered or ctx is done.
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.queue.Drain(ctx)
}

// Close stops the relay and returns the number of payloads discarded.
func (p *Pipeline) Close() int {
	n := p.queue.Stop()
	logger.L().Infow("Pipeline closed", "discarded", n, "shapes", p.index.Len())
	return n
}
