package index

import (
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

// DefaultWarmup is the stabilization window used when none is configured.
const DefaultWarmup = 300 * time.Second

// Notifier receives late novel shape events: shapes first seen after the
// warm-up window has elapsed.
type Notifier interface {
	LateNovelShape(p record.Principal, rawText string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(p record.Principal, rawText string)

func (f NotifierFunc) LateNovelShape(p record.Principal, rawText string) { f(p, rawText) }

type logNotifier struct{}

func (logNotifier) LateNovelShape(p record.Principal, rawText string) {
	if rawText == "" {
		rawText = "(SQL extraction failed)"
	}
	logger.L().Warnf("Unexpected query behavior from '%s': %s", p, rawText)
}

// Options configures an Index. Zero values select the defaults, except
// Warmup where zero means every new shape is reported.
type Options struct {
	Warmup     time.Duration
	Clock      quartz.Clock
	Notifier   Notifier
	Registerer prometheus.Registerer
}

// Result is the outcome of classifying one record.
type Result struct {
	IsNew bool
	Count int64
}

// Entry is one shape in a snapshot.
type Entry struct {
	Shape     record.ShapeKey
	Record    *record.Record
	Count     int64
	FirstSeen time.Time
	LastSeen  time.Time
}

// Stats describes the index lifetime bookkeeping.
type Stats struct {
	StartedAt      time.Time
	LastNewShapeAt time.Time
	Warmup         time.Duration
	Shapes         int
}

type slot struct {
	rec       *record.Record
	count     int64
	firstSeen time.Time
	lastSeen  time.Time
}

// Index counts occurrences per shape. It never evicts; Reset clears it
// wholesale. All methods are safe for concurrent use.
type Index struct {
	warmup   time.Duration
	clock    quartz.Clock
	notifier Notifier
	metrics  *metrics

	mu             sync.Mutex
	shapes         map[record.ShapeKey]*slot
	order          []record.ShapeKey
	startedAt      time.Time
	lastNewShapeAt time.Time
}

// New returns an empty index. It fails only when the metrics cannot be
// registered with opts.Registerer.
func New(opts Options) (*Index, error) {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{}
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register index metrics: %w", err)
	}
	now := opts.Clock.Now()
	return &Index{
		warmup:         opts.Warmup,
		clock:          opts.Clock,
		notifier:       opts.Notifier,
		metrics:        m,
		shapes:         make(map[record.ShapeKey]*slot),
		startedAt:      now,
		lastNewShapeAt: now,
	}, nil
}

// Classify counts rec against its shape. The first record of a shape is
// kept as the shape's representative. A new shape seen once the warm-up
// window has passed is reported to the notifier.
func (x *Index) Classify(rec *record.Record) Result {
	key := rec.Shape()

	x.mu.Lock()
	now := x.clock.Now()
	x.metrics.Observations.Inc()
	if s, ok := x.shapes[key]; ok {
		s.count++
		s.lastSeen = now
		res := Result{IsNew: false, Count: s.count}
		x.mu.Unlock()
		return res
	}

	x.shapes[key] = &slot{rec: rec, count: 1, firstSeen: now, lastSeen: now}
	x.order = append(x.order, key)
	x.lastNewShapeAt = now
	late := now.Sub(x.startedAt) > x.warmup
	x.metrics.Shapes.Set(float64(len(x.shapes)))
	x.mu.Unlock()

	logger.L().Debugw("New shape",
		"shape", key.String(),
		"hash", key.Hash(),
		"principal", rec.Principal().String(),
		"late", late)

	if late {
		x.metrics.LateNovelShapes.Inc()
		x.notifier.LateNovelShape(rec.Principal(), rec.RawText())
	}
	return Result{IsNew: true, Count: 1}
}

// Snapshot copies every entry in first-seen order under the index lock.
func (x *Index) Snapshot() []Entry {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]Entry, 0, len(x.order))
	for _, key := range x.order {
		s := x.shapes[key]
		out = append(out, Entry{
			Shape:     key,
			Record:    s.rec,
			Count:     s.count,
			FirstSeen: s.firstSeen,
			LastSeen:  s.lastSeen,
		})
	}
	return out
}

// Reset drops all shapes and restarts the warm-up window.
func (x *Index) Reset() {
	x.mu.Lock()
	now := x.clock.Now()
	n := len(x.shapes)
	x.shapes = make(map[record.ShapeKey]*slot)
	x.order = nil
	x.startedAt = now
	x.lastNewShapeAt = now
	x.metrics.Shapes.Set(0)
	x.mu.Unlock()

	logger.L().Infow("Index reset", "dropped_shapes", n)
}

func (x *Index) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return Stats{
		StartedAt:      x.startedAt,
		LastNewShapeAt: x.lastNewShapeAt,
		Warmup:         x.warmup,
		Shapes:         len(x.shapes),
	}
}

// Len returns the number of distinct shapes.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.shapes)
}
