package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "utm"

// Redirect outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics are the operator-visible counters of the redirect and tracking path.
type Metrics struct {
	ClicksRecorded prometheus.Counter
	ClicksFailed   prometheus.Counter
	ClicksDropped  prometheus.Counter
	Redirects      *prometheus.CounterVec
}

// New registers the counters with reg. Each Metrics needs its own registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ClicksRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clicks_recorded_total",
			Help:      "Clicks durably appended to the click store.",
		}),
		ClicksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clicks_failed_total",
			Help:      "Clicks lost because the click store write failed.",
		}),
		ClicksDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clicks_dropped_total",
			Help:      "Clicks dropped because the tracking queue was full or closed.",
		}),
		Redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "redirects_total",
			Help:      "Slug resolutions by outcome.",
		}, []string{"outcome"}),
	}
}

// NewUnregistered returns counters bound to a private registry, for callers
// that do not expose metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
