package merge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors a merge updates.
type Metrics struct {
	merges   *prometheus.CounterVec
	slides   prometheus.Counter
	dedup    prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the merge collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckmerge_merges_total",
			Help: "Merge operations by result.",
		}, []string{"result"}),
		slides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deckmerge_slides_appended_total",
			Help: "Slides appended to templates.",
		}),
		dedup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deckmerge_media_deduplicated_total",
			Help: "Media references satisfied by an asset already in the output.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deckmerge_merge_duration_seconds",
			Help:    "Wall-clock time of merge operations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	for _, c := range []prometheus.Collector{m.merges, m.slides, m.dedup, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe records one finished merge. A nil receiver records nothing.
func (m *Metrics) observe(report *Report, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.merges.WithLabelValues("failure").Inc()
		return
	}
	m.merges.WithLabelValues("success").Inc()
	m.slides.Add(float64(report.ImportedSlides))
	m.dedup.Add(float64(report.MediaReused))
}
