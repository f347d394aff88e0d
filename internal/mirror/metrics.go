package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the prefix of every metric exported by the engine.
	Namespace = "ldesmirror"
	subsystem = "sync"
)

// Metrics holds the engine's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles    *prometheus.CounterVec
	pages     *prometheus.CounterVec
	members   prometheus.Counter
	duration  *prometheus.HistogramVec
	cursor    prometheus.Gauge
	relations prometheus.Gauge
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name: "cycles_total",
			Help: "Sync cycles by mode and outcome",
		}, []string{"mode", "outcome"}),
		pages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name: "pages_total",
			Help: "Pages processed by outcome",
		}, []string{"outcome"}),
		members: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name: "members_written_total",
			Help: "Member records written to fragments",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name:    "duration_seconds",
			Help:    "Duration of sync cycles",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"mode"}),
		cursor: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name: "cursor_timestamp_seconds",
			Help: "Unix time of the committed cursor",
		}),
		relations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Subsystem: subsystem,
			Name: "relations",
			Help: "Relations recorded in the mirror root",
		}),
	}
}

func (m *Metrics) observe(r *Report, err error) {
	if m == nil || r == nil {
		return
	}

	mode := string(r.Mode)
	if mode == "" {
		mode = "unknown"
	}
	m.cycles.WithLabelValues(mode, outcome(r, err)).Inc()
	m.duration.WithLabelValues(mode).Observe(r.Duration.Seconds())
	m.pages.WithLabelValues("mirrored").Add(float64(r.PagesMirrored))
	m.pages.WithLabelValues("skipped").Add(float64(r.PagesSkipped))
	m.pages.WithLabelValues("failed").Add(float64(r.PagesFailed))
	m.members.Add(float64(r.MembersWritten))
	if r.Committed {
		m.cursor.Set(float64(r.CursorAfter.UnixMilli()) / 1000)
	}
}

func (m *Metrics) setRelations(n int) {
	if m == nil {
		return
	}
	m.relations.Set(float64(n))
}

func outcome(r *Report, err error) string {
	switch {
	case err != nil:
		return "error"
	case r.Partial():
		return "partial"
	default:
		return "ok"
	}
}
