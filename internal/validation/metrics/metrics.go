// Package metrics exposes the validation bus counters and histograms. All
// methods tolerate a nil receiver so tests can run services unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	validationsTotal *prometheus.CounterVec
	duplicatesFound  prometheus.Counter
	softDeletesTotal *prometheus.CounterVec
	restoresTotal    prometheus.Counter
	electionsTotal   *prometheus.CounterVec
	goldenFlips      prometheus.Counter
	electionSeconds  prometheus.Histogram
}

// New registers the validation metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_validations_total",
			Help: "Validation submissions by type and outcome.",
		}, []string{"type", "outcome"}),
		duplicatesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "veritas_duplicates_found_total",
			Help: "Duplicate probes that found an existing live record.",
		}),
		softDeletesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_soft_deletes_total",
			Help: "Soft deletes by origin (auto or manual).",
		}, []string{"origin"}),
		restoresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "veritas_restores_total",
			Help: "Restored records.",
		}),
		electionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_elections_total",
			Help: "Golden record elections by result.",
		}, []string{"result"}),
		goldenFlips: factory.NewCounter(prometheus.CounterOpts{
			Name: "veritas_golden_flips_total",
			Help: "Elections that changed the golden record of a group.",
		}),
		electionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritas_election_duration_seconds",
			Help:    "Wall time of the locked elect-and-apply cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncValidation(validationType string, valid bool) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.validationsTotal.WithLabelValues(validationType, outcome).Inc()
}

func (m *Metrics) IncDuplicateFound() {
	if m == nil {
		return
	}
	m.duplicatesFound.Inc()
}

func (m *Metrics) IncSoftDelete(origin string) {
	if m == nil {
		return
	}
	m.softDeletesTotal.WithLabelValues(origin).Inc()
}

func (m *Metrics) IncRestore() {
	if m == nil {
		return
	}
	m.restoresTotal.Inc()
}

func (m *Metrics) IncElection(result string) {
	if m == nil {
		return
	}
	m.electionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncGoldenFlip() {
	if m == nil {
		return
	}
	m.goldenFlips.Inc()
}

func (m *Metrics) ObserveElection(d time.Duration) {
	if m == nil {
		return
	}
	m.electionSeconds.Observe(d.Seconds())
}
