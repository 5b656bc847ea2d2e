package simulator

import (
	"github.com/YuminosukeSato/mlsim/cluster"
	"github.com/YuminosukeSato/mlsim/config"
	"github.com/YuminosukeSato/mlsim/core/model"
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/metrics"
	"github.com/YuminosukeSato/mlsim/svm"
)

// Snapshot is a deep copy of a session's state, safe to read while the
// session keeps running.
type Snapshot struct {
	SessionID string
	Kind      dataset.Kind
	Epoch     model.Token
	State     model.State
	Config    config.Config
	Dataset   *dataset.Dataset

	// Regression
	Fit  metrics.FitMetrics
	Line []dataset.Point

	// Clustering
	Centroids   []cluster.Centroid
	Assignments []int
	Iteration   int
	Inertia     float64
	History     []float64

	// SVM
	Boundary *svm.Boundary
	Accuracy float64
	Trained  bool
}

// Snapshot copies the current session state. For regression sessions the
// fit and the predicted line are recomputed from the configured line.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.id,
		Kind:      s.kind,
		Epoch:     s.epoch.Current(),
		State:     s.stateLocked(),
		Config:    s.cfg,
		Dataset:   s.ds.Clone(),
		Iteration: s.iteration,
		Inertia:   s.inertia,
		Accuracy:  s.accuracy,
		Trained:   s.trained,
	}

	switch s.kind {
	case dataset.Regression:
		snap.Fit = s.linearFitLocked()
		snap.Line = metrics.PredictedLine(s.cfg.Regression.Slope, s.cfg.Regression.Intercept)
	case dataset.Clustering:
		snap.Centroids = append([]cluster.Centroid(nil), s.centroids...)
		snap.Assignments = append([]int(nil), s.assignments...)
		snap.History = append([]float64(nil), s.history...)
	case dataset.SVM:
		if s.boundary != nil {
			snap.Boundary = &svm.Boundary{
				Kernel: s.boundary.Kernel,
				Points: append([]dataset.Point(nil), s.boundary.Points...),
			}
		}
	}
	return snap
}
