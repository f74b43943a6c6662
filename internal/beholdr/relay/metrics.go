package relay

import "github.com/prometheus/client_golang/prometheus"

const (
	ns        = "beholdr"
	subsystem = "relay"

	LabelResult = "result"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

type metrics struct {
	QueueDepth prometheus.Gauge
	Sends      *prometheus.CounterVec
	Discarded  prometheus.Counter
}

// newMetrics registers the relay collectors with reg. A nil reg leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth", Namespace: ns, Subsystem: subsystem,
			Help: "The number of payloads waiting to be sent, including the one in flight.",
		}),
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sends_total", Namespace: ns, Subsystem: subsystem,
			Help: "The number of send attempts, by result (success, failure).",
		}, []string{LabelResult}),
		Discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "discarded_total", Namespace: ns, Subsystem: subsystem,
			Help: "The number of payloads dropped unsent at shutdown.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.QueueDepth, m.Sends, m.Discarded} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}
