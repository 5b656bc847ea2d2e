package simulator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/mlsim/dataset"
)

// Metrics are Prometheus collectors shared by sessions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	generations    *prometheus.CounterVec
	kmeansSteps    *prometheus.CounterVec
	trainingRuns   *prometheus.CounterVec
	staleCallbacks *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlsim_generations_total",
			Help: "Datasets generated",
		}, []string{"model"}),
		kmeansSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlsim_kmeans_steps_total",
			Help: "K-means steps applied to session state",
		}, []string{"model"}),
		trainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlsim_training_runs_total",
			Help: "Boundary trainings applied to session state",
		}, []string{"model"}),
		staleCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mlsim_stale_callbacks_total",
			Help: "Deferred results discarded because the session epoch changed",
		}, []string{"model"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlsim_run_duration_seconds",
			Help:    "Wall time of k-means playback and boundary training, including pacing delays",
			Buckets: prometheus.DefBuckets,
		}, []string{"model", "status"}),
	}

	for _, c := range []prometheus.Collector{m.generations, m.kmeansSteps, m.trainingRuns, m.staleCallbacks, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) incGenerations(kind dataset.Kind) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) incKMeansSteps(kind dataset.Kind) {
	if m == nil {
		return
	}
	m.kmeansSteps.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) incTrainingRuns(kind dataset.Kind) {
	if m == nil {
		return
	}
	m.trainingRuns.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) incStale(kind dataset.Kind) {
	if m == nil {
		return
	}
	m.staleCallbacks.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeRun(kind dataset.Kind, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runDuration.WithLabelValues(kind.String(), status).Observe(d.Seconds())
}
