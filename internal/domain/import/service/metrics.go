package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const noImplementation = "none"

// Metrics records per-document import outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	documents  *prometheus.CounterVec
	duration   prometheus.Histogram
	activities *prometheus.CounterVec
}

// NewMetrics registers the importer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_documents_total",
			Help: "Documents processed, by terminal status and implementation.",
		}, []string{"status", "implementation"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "importer_document_duration_seconds",
			Help:    "Time spent extracting, classifying and parsing one document.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		activities: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "importer_activities_total",
			Help: "Activities emitted by successful documents.",
		}, []string{"implementation"}),
	}
}

func (m *Metrics) observe(outcome Outcome, impl string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if impl == "" {
		impl = noImplementation
	}
	m.documents.WithLabelValues(strconv.Itoa(int(outcome.Status)), impl).Inc()
	m.duration.Observe(elapsed.Seconds())
	if outcome.Successful {
		m.activities.WithLabelValues(impl).Add(float64(len(outcome.Activities)))
	}
}
