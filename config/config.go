// Package config holds the user-facing hyperparameters of each simulator,
// their defaults and the ranges accepted at the configuration boundary.
package config

import (
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

// Range is a closed interval of accepted values.
type Range struct {
	Min, Max float64
}

// Contains reports whether v is in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) check(param string, v float64) error {
	if !errors.IsFinite(v) || !r.Contains(v) {
		return errors.NewRangeError(param, v, r.Min, r.Max)
	}
	return nil
}

// Accepted ranges.
var (
	SlopeRange            = Range{-5, 5}
	InterceptRange        = Range{-10, 10}
	NoiseLevelRange       = Range{0, 2}
	RegressionPointsRange = Range{10, 200}

	KRange                = Range{2, 6}
	ClusteringPointsRange = Range{50, 200}
	MaxIterationsRange    = Range{5, 20}

	CRange     = Range{0.1, 10}
	GammaRange = Range{0.1, 5}
)

// Regression configures the linear regression simulator. Slope and
// Intercept are the user's line, not the generator's truth.
type Regression struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	NoiseLevel float64 `json:"noise_level"`
	NumPoints  int     `json:"num_points"`
}

// DefaultRegression returns slope 1, intercept 0, noise 0.5, 50 points.
func DefaultRegression() Regression {
	return Regression{Slope: 1, Intercept: 0, NoiseLevel: 0.5, NumPoints: 50}
}

// Validate checks every field against its range.
func (c Regression) Validate() error {
	if err := SlopeRange.check("slope", c.Slope); err != nil {
		return err
	}
	if err := InterceptRange.check("intercept", c.Intercept); err != nil {
		return err
	}
	if err := NoiseLevelRange.check("noise_level", c.NoiseLevel); err != nil {
		return err
	}
	return RegressionPointsRange.check("num_points", float64(c.NumPoints))
}

// Clustering configures the k-means simulator.
type Clustering struct {
	K             int `json:"k"`
	NumPoints     int `json:"num_points"`
	MaxIterations int `json:"max_iterations"`
}

// DefaultClustering returns k 3, 100 points, 10 iterations.
func DefaultClustering() Clustering {
	return Clustering{K: 3, NumPoints: 100, MaxIterations: 10}
}

// Validate checks every field against its range.
func (c Clustering) Validate() error {
	if err := KRange.check("k", float64(c.K)); err != nil {
		return err
	}
	if err := ClusteringPointsRange.check("num_points", float64(c.NumPoints)); err != nil {
		return err
	}
	return MaxIterationsRange.check("max_iterations", float64(c.MaxIterations))
}

// SVM configures the boundary simulator. C is accepted for symmetry with the
// other controls; the estimator does not use it.
type SVM struct {
	Kernel string  `json:"kernel"`
	C      float64 `json:"c"`
	Gamma  float64 `json:"gamma"`
}

// DefaultSVM returns a linear kernel with C 1 and gamma 1.
func DefaultSVM() SVM {
	return SVM{Kernel: "linear", C: 1, Gamma: 1}
}

// Validate checks every field against its range.
func (c SVM) Validate() error {
	if c.Kernel != "linear" && c.Kernel != "rbf" {
		return errors.NewValidationError("kernel", "must be linear or rbf", c.Kernel)
	}
	if err := CRange.check("C", c.C); err != nil {
		return err
	}
	return GammaRange.check("gamma", c.Gamma)
}

// Config groups the settings of all three simulators. A session reads the
// section matching its model kind.
type Config struct {
	Regression Regression `json:"regression"`
	Clustering Clustering `json:"clustering"`
	SVM        SVM        `json:"svm"`
}

// Default returns the defaults of every section.
func Default() Config {
	return Config{
		Regression: DefaultRegression(),
		Clustering: DefaultClustering(),
		SVM:        DefaultSVM(),
	}
}

// Validate checks the section used by kind.
func (c Config) Validate(kind dataset.Kind) error {
	switch kind {
	case dataset.Regression:
		return c.Regression.Validate()
	case dataset.Clustering:
		return c.Clustering.Validate()
	case dataset.SVM:
		return c.SVM.Validate()
	default:
		return errors.NewValueError("Config.Validate", "unknown model kind: "+kind.String())
	}
}

// GeneratorParams maps the section used by kind to generator params.
func (c Config) GeneratorParams(kind dataset.Kind) dataset.Params {
	switch kind {
	case dataset.Regression:
		return dataset.Params{NumPoints: c.Regression.NumPoints, NoiseLevel: c.Regression.NoiseLevel}
	case dataset.Clustering:
		return dataset.Params{NumPoints: c.Clustering.NumPoints}
	default:
		return dataset.Params{}
	}
}
