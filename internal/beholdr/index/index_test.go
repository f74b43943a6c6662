package index

import (
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

func newIndex(t *testing.T, opts Options) *Index {
	t.Helper()
	x, err := New(opts)
	require.NoError(t, err)
	return x
}

type capture struct {
	mu     sync.Mutex
	events []string
}

func (c *capture) LateNovelShape(p record.Principal, rawText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, p.String()+" "+rawText)
}

func (c *capture) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func mustRecord(t *testing.T, op record.Operation, user, raw string, fields ...record.Field) *record.Record {
	t.Helper()
	r, err := record.New(record.Params{
		Operation:     op,
		Type:          record.TypeRead,
		Fields:        fields,
		Principal:     record.Principal{User: user, Address: "10.0.0.1"},
		CanonicalText: raw,
		RawText:       raw,
	})
	require.NoError(t, err)
	return r
}

func selectRecord(t *testing.T, user, raw string) *record.Record {
	return mustRecord(t, record.OpSelect, user, raw,
		record.Field{Column: "name", Table: "users", Usage: record.UsedInSelect},
		record.Field{Column: "id", Table: "users", Usage: record.UsedInWhere})
}

func TestClassify_NewThenSeen(t *testing.T) {
	x := newIndex(t, Options{Warmup: time.Minute})

	res := x.Classify(selectRecord(t, "alice", "SELECT name FROM users WHERE id = 1"))
	assert.Equal(t, Result{IsNew: true, Count: 1}, res)

	res = x.Classify(selectRecord(t, "alice", "SELECT name FROM users WHERE id = 2"))
	assert.Equal(t, Result{IsNew: false, Count: 2}, res)
}

// Records with equal structure but different names, principal and text
// count as one shape.
func TestClassify_Equivalence(t *testing.T) {
	x := newIndex(t, Options{Warmup: time.Hour})
	faker := gofakeit.New(7)

	for i := 0; i < 20; i++ {
		r := mustRecord(t, record.OpUpdate, faker.Username(), faker.Word(),
			record.Field{Column: faker.Word(), Table: faker.Word(), Usage: record.UsedInSet},
			record.Field{Column: faker.Word(), Database: faker.Word(), Usage: record.UsedInWhere | record.UsedInSubselect})
		res := x.Classify(r)
		assert.Equal(t, i == 0, res.IsNew)
		assert.Equal(t, int64(i+1), res.Count)
	}
	assert.Equal(t, 1, x.Len())
}

func TestClassify_CountingCorrectness(t *testing.T) {
	x := newIndex(t, Options{Warmup: time.Hour})
	const n = 37
	for i := 0; i < n; i++ {
		x.Classify(selectRecord(t, "bob", "SELECT 1"))
	}
	x.Classify(mustRecord(t, record.OpDelete, "bob", "DELETE FROM t"))

	snap := x.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(n), snap[0].Count)
	assert.Equal(t, int64(1), snap[1].Count)
}

// Two records differing only in literals and column aliasing form one entry.
func TestClassify_ShapeDedup(t *testing.T) {
	x := newIndex(t, Options{Warmup: time.Hour})
	a := mustRecord(t, record.OpSelect, "app", "SELECT name AS n FROM users WHERE id = 1",
		record.Field{Column: "name", Table: "users", Usage: record.UsedInSelect},
		record.Field{Column: "id", Table: "users", Usage: record.UsedInWhere})
	b := mustRecord(t, record.OpSelect, "app", "SELECT name AS full FROM users WHERE id = 2",
		record.Field{Column: "name", Table: "users", Usage: record.UsedInSelect},
		record.Field{Column: "id", Table: "users", Usage: record.UsedInWhere})

	x.Classify(a)
	x.Classify(b)

	snap := x.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap[0].Count)
	assert.Equal(t, a.Serialized(), snap[0].Record.Serialized())
	assert.Equal(t, a.Shape(), snap[0].Shape)
}

func TestSnapshot_FirstSeenOrder(t *testing.T) {
	clock := quartz.NewMock(t)
	x := newIndex(t, Options{Warmup: time.Hour, Clock: clock})

	ops := []record.Operation{record.OpInsert, record.OpSelect, record.OpDelete}
	for _, op := range ops {
		x.Classify(mustRecord(t, op, "u", op.String()))
		clock.Advance(time.Second)
	}
	// Repeat the first shape; order stays by first sighting.
	x.Classify(mustRecord(t, record.OpInsert, "u", "again"))

	snap := x.Snapshot()
	require.Len(t, snap, 3)
	for i, op := range ops {
		assert.Equal(t, op, snap[i].Shape.Op)
	}
	assert.True(t, snap[0].LastSeen.After(snap[0].FirstSeen))
	assert.True(t, snap[1].FirstSeen.After(snap[0].FirstSeen))
}

func TestClassify_WarmupSuppression(t *testing.T) {
	clock := quartz.NewMock(t)
	notes := &capture{}
	x := newIndex(t, Options{Warmup: 300 * time.Second, Clock: clock, Notifier: notes})

	x.Classify(mustRecord(t, record.OpSelect, "early", "SELECT 1"))
	clock.Advance(300 * time.Second)
	// Exactly at the boundary is still inside the window.
	x.Classify(mustRecord(t, record.OpInsert, "edge", "INSERT 1"))
	assert.Empty(t, notes.Events())

	clock.Advance(time.Second)
	x.Classify(mustRecord(t, record.OpDelete, "late", "DELETE 1"))
	assert.Equal(t, []string{"late@10.0.0.1 DELETE 1"}, notes.Events())

	// Repeats never notify.
	x.Classify(mustRecord(t, record.OpDelete, "late", "DELETE 2"))
	assert.Len(t, notes.Events(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(x.metrics.LateNovelShapes))
}

func TestClassify_ZeroWarmupAlwaysNotifies(t *testing.T) {
	clock := quartz.NewMock(t)
	notes := &capture{}
	x := newIndex(t, Options{Clock: clock, Notifier: notes})

	clock.Advance(time.Millisecond)
	x.Classify(mustRecord(t, record.OpSelect, "u", "SELECT 1"))
	assert.Len(t, notes.Events(), 1)
}

func TestReset(t *testing.T) {
	clock := quartz.NewMock(t)
	notes := &capture{}
	x := newIndex(t, Options{Warmup: 10 * time.Second, Clock: clock, Notifier: notes})

	r := selectRecord(t, "alice", "SELECT name FROM users WHERE id = 1")
	x.Classify(r)
	x.Classify(r)

	clock.Advance(time.Minute)
	x.Reset()
	assert.Empty(t, x.Snapshot())
	assert.Equal(t, 0, x.Len())

	st := x.Stats()
	assert.Equal(t, clock.Now(), st.StartedAt)
	assert.Equal(t, clock.Now(), st.LastNewShapeAt)

	// The warm-up window restarts, so the re-seen shape is new and quiet.
	res := x.Classify(r)
	assert.Equal(t, Result{IsNew: true, Count: 1}, res)
	assert.Empty(t, notes.Events())
}

func TestStats(t *testing.T) {
	clock := quartz.NewMock(t)
	start := clock.Now()
	x := newIndex(t, Options{Warmup: time.Minute, Clock: clock})

	clock.Advance(5 * time.Second)
	x.Classify(selectRecord(t, "u", "SELECT 1"))
	clock.Advance(5 * time.Second)
	x.Classify(selectRecord(t, "u", "SELECT 2"))

	st := x.Stats()
	assert.Equal(t, start, st.StartedAt)
	assert.Equal(t, start.Add(5*time.Second), st.LastNewShapeAt)
	assert.Equal(t, time.Minute, st.Warmup)
	assert.Equal(t, 1, st.Shapes)
}

func TestClassify_Concurrent(t *testing.T) {
	reg := prometheus.NewRegistry()
	x := newIndex(t, Options{Warmup: time.Hour, Registerer: reg})

	r := selectRecord(t, "u", "SELECT 1")
	const workers, per = 8, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				x.Classify(r)
				_ = x.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := x.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(workers*per), snap[0].Count)
	assert.Equal(t, float64(workers*per), testutil.ToFloat64(x.metrics.Observations))
	assert.Equal(t, float64(1), testutil.ToFloat64(x.metrics.Shapes))
}

func TestLogNotifier(t *testing.T) {
	prev := logger.L()
	core, logs := observer.New(zap.WarnLevel)
	logger.Set(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Set(prev) })

	n := logNotifier{}
	n.LateNovelShape(record.Principal{User: "alice", Address: "10.0.0.5"}, "SELECT 1")
	n.LateNovelShape(record.Principal{User: "bob", Address: "10.0.0.6"}, "")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Unexpected query behavior from 'alice@10.0.0.5': SELECT 1", entries[0].Message)
	assert.Equal(t, "Unexpected query behavior from 'bob@10.0.0.6': (SQL extraction failed)", entries[1].Message)
}

func TestNotifierFunc(t *testing.T) {
	var got string
	var n Notifier = NotifierFunc(func(p record.Principal, raw string) { got = p.User + ":" + raw })
	n.LateNovelShape(record.Principal{User: "u"}, "q")
	assert.Equal(t, "u:q", got)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = newIndex(t, Options{Registerer: reg})

	x, err := New(Options{Registerer: reg})
	require.Error(t, err)
	assert.Nil(t, x)
	assert.ErrorContains(t, err, "register index metrics")

	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}
