package index

import "github.com/prometheus/client_golang/prometheus"

const (
	ns        = "beholdr"
	subsystem = "index"
)

type metrics struct {
	Observations    prometheus.Counter
	Shapes          prometheus.Gauge
	LateNovelShapes prometheus.Counter
}

// newMetrics registers the index collectors with reg. A nil reg leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "observations_total", Namespace: ns, Subsystem: subsystem,
			Help: "The number of records classified.",
		}),
		Shapes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shapes", Namespace: ns, Subsystem: subsystem,
			Help: "The number of distinct shapes currently held.",
		}),
		LateNovelShapes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "late_novel_shapes_total", Namespace: ns, Subsystem: subsystem,
			Help: "The number of new shapes seen after the warm-up window.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Observations, m.Shapes, m.LateNovelShapes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
