package admin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

type fakeSource struct {
	*index.Index
	pending int
}

func (f *fakeSource) ShowData() []index.Entry { return f.Snapshot() }
func (f *fakeSource) ClearData()              { f.Reset() }
func (f *fakeSource) Pending() int            { return f.pending }

func newIndex(t *testing.T, opts index.Options) *index.Index {
	t.Helper()
	idx, err := index.New(opts)
	require.NoError(t, err)
	return idx
}

func newRecord(t *testing.T, op record.Operation, sql string, fields ...record.Field) *record.Record {
	t.Helper()
	r, err := record.New(record.Params{
		Operation:     op,
		Type:          record.TypeRead,
		Fields:        fields,
		Principal:     record.Principal{User: "app", Address: "10.0.0.1"},
		CanonicalText: sql,
		RawText:       sql,
	})
	require.NoError(t, err)
	return r
}

func setup(t *testing.T) (*fakeSource, *Client, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	src := &fakeSource{Index: newIndex(t, index.Options{Warmup: time.Minute, Registerer: reg}), pending: 4}

	srv := httptest.NewServer(NewRouter(src, reg))
	t.Cleanup(srv.Close)
	return src, NewClient(srv.URL, srv.Client()), reg
}

func TestShowData(t *testing.T) {
	src, c, _ := setup(t)
	ctx := context.Background()

	rows, err := c.ShowData(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	sel := newRecord(t, record.OpSelect, "SELECT name FROM users",
		record.Field{Column: "name", Table: "users", Usage: record.UsedInSelect})
	del := newRecord(t, record.OpDelete, "DELETE FROM sessions")
	src.Classify(sel)
	src.Classify(del)
	src.Classify(sel)

	rows, err = c.ShowData(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, int64(1), rows[1].Count)

	got, err := record.Parse(rows[0].Record)
	require.NoError(t, err)
	assert.Equal(t, sel.Serialized(), got.Serialized())
}

func TestClearData(t *testing.T) {
	src, c, _ := setup(t)
	ctx := context.Background()

	src.Classify(newRecord(t, record.OpDelete, "DELETE FROM sessions"))
	require.Equal(t, 1, src.Len())

	require.NoError(t, c.ClearData(ctx))
	assert.Equal(t, 0, src.Len())

	rows, err := c.ShowData(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStats(t *testing.T) {
	src, c, _ := setup(t)
	src.Classify(newRecord(t, record.OpDelete, "DELETE FROM sessions"))

	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Shapes)
	assert.Equal(t, 4, s.Pending)
	assert.Equal(t, float64(60), s.WarmupSeconds)
	assert.False(t, s.StartedAt.IsZero())
}

func TestMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{Index: newIndex(t, index.Options{Warmup: time.Minute, Registerer: reg})}
	srv := httptest.NewServer(NewRouter(src, reg))
	defer srv.Close()

	src.Classify(newRecord(t, record.OpDelete, "DELETE FROM sessions"))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "beholdr_index_shapes 1")
	assert.Contains(t, string(body), "beholdr_index_observations_total 1")

	resp, err = srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	src := &fakeSource{Index: newIndex(t, index.Options{})}
	srv := httptest.NewServer(NewRouter(src, prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/data", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.ShowData(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500: boom")
	assert.Error(t, c.ClearData(context.Background()))
}

func TestNewClient_BareAddress(t *testing.T) {
	c := NewClient("127.0.0.1:8089/", nil)
	assert.Equal(t, "http://127.0.0.1:8089", c.base)
	assert.Equal(t, http.DefaultClient, c.hc)
}

func TestServer_StartShutdown(t *testing.T) {
	src := &fakeSource{Index: newIndex(t, index.Options{})}
	s, err := Start("127.0.0.1:0", NewRouter(src, prometheus.NewRegistry()))
	require.NoError(t, err)

	c := NewClient(s.Addr(), nil)
	rows, err := c.ShowData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = c.ShowData(context.Background())
	assert.Error(t, err)
}

func TestStart_AddressInUse(t *testing.T) {
	src := &fakeSource{Index: newIndex(t, index.Options{})}
	s, err := Start("127.0.0.1:0", NewRouter(src, prometheus.NewRegistry()))
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	_, err = Start(s.Addr(), NewRouter(src, prometheus.NewRegistry()))
	assert.Error(t, err)
}
