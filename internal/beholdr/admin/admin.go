package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/report"
)

// DataSource is the administrative view of a running pipeline.
// *pipeline.Pipeline satisfies it.
type DataSource interface {
	ShowData() []index.Entry
	ClearData()
	Stats() index.Stats
	Pending() int
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	StartedAt      time.Time `json:"started_at"`
	LastNewShapeAt time.Time `json:"last_new_shape_at"`
	WarmupSeconds  float64   `json:"warmup_seconds"`
	Shapes         int       `json:"shapes"`
	Pending        int       `json:"pending"`
}

type api struct {
	ds DataSource
}

// NewRouter exposes ds over HTTP. A nil gatherer serves the default
// Prometheus registry.
func NewRouter(ds DataSource, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a := &api{ds: ds}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/data", a.showData)
	r.Delete("/data", a.clearData)
	r.Get("/stats", a.stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Errorw("encode admin response", "err", err.Error())
	}
}

func (a *api) showData(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report.Rows(a.ds.ShowData()))
}

func (a *api) clearData(w http.ResponseWriter, _ *http.Request) {
	a.ds.ClearData()
	logger.L().Infow("Index cleared through admin API")
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) stats(w http.ResponseWriter, _ *http.Request) {
	s := a.ds.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		StartedAt:      s.StartedAt.UTC(),
		LastNewShapeAt: s.LastNewShapeAt.UTC(),
		WarmupSeconds:  s.Warmup.Seconds(),
		Shapes:         s.Shapes,
		Pending:        a.ds.Pending(),
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.L().Debugw("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
