// Package dataset defines the point types shared by the simulators and the
// stochastic generators that produce them.
package dataset

import (
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

// Kind selects the simulator a dataset is generated for.
type Kind int

const (
	// Regression produces noisy samples of a random line.
	Regression Kind = iota
	// Clustering produces blobs around random natural centers plus uniform noise.
	Clustering
	// SVM produces 50 labeled points under a random separation regime.
	SVM
)

// String returns the kind name used in configuration and logs.
func (k Kind) String() string {
	switch k {
	case Regression:
		return "regression"
	case Clustering:
		return "clustering"
	case SVM:
		return "svm"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. It also accepts the simulator ids
// "linear-regression" and "k-means".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regression", "linear-regression":
		return Regression, nil
	case "clustering", "k-means", "kmeans":
		return Clustering, nil
	case "svm":
		return SVM, nil
	default:
		return 0, errors.NewValueError("ParseKind", "unknown model kind: "+s)
	}
}

// Point is a 2-D coordinate. Points are values and never mutated after generation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LabeledPoint is a Point with a binary class label. Regression and
// clustering datasets leave Label at 0.
type LabeledPoint struct {
	Point
	Label int `json:"label"`
}

// Truth records the generative parameters drawn for a dataset. It is
// informational: no fitting engine is seeded from it.
type Truth struct {
	Slope     float64   `json:"slope,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`
	Centers   []Point   `json:"centers,omitempty"`
	Spreads   []float64 `json:"spreads,omitempty"`
	Regime    Regime    `json:"regime,omitempty"`
}

// Dataset is an ordered, index-stable point sequence. It is replaced as a
// whole on regeneration; per-point cluster assignments live outside it.
type Dataset struct {
	Kind   Kind           `json:"kind"`
	Points []LabeledPoint `json:"points"`
	Truth  Truth          `json:"truth"`
}

// Len returns the number of points. A nil dataset has length 0.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Points)
}

// Xs returns the x coordinates in dataset order.
func (d *Dataset) Xs() []float64 {
	xs := make([]float64, d.Len())
	for i, p := range d.pointsOrNil() {
		xs[i] = p.X
	}
	return xs
}

// Ys returns the y coordinates in dataset order.
func (d *Dataset) Ys() []float64 {
	ys := make([]float64, d.Len())
	for i, p := range d.pointsOrNil() {
		ys[i] = p.Y
	}
	return ys
}

// Labels returns the labels in dataset order.
func (d *Dataset) Labels() []int {
	labels := make([]int, d.Len())
	for i, p := range d.pointsOrNil() {
		labels[i] = p.Label
	}
	return labels
}

// ClassCounts returns the number of points labeled 0 and 1.
func (d *Dataset) ClassCounts() (negative, positive int) {
	for _, p := range d.pointsOrNil() {
		if p.Label == 1 {
			positive++
		} else {
			negative++
		}
	}
	return negative, positive
}

// Bounds returns the component-wise minimum and maximum over all points.
// An empty dataset yields zero points.
func (d *Dataset) Bounds() (lo, hi Point) {
	if d.Len() == 0 {
		return Point{}, Point{}
	}
	xs, ys := d.Xs(), d.Ys()
	return Point{X: floats.Min(xs), Y: floats.Min(ys)}, Point{X: floats.Max(xs), Y: floats.Max(ys)}
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{Kind: d.Kind, Truth: d.Truth}
	out.Points = append([]LabeledPoint(nil), d.Points...)
	out.Truth.Centers = append([]Point(nil), d.Truth.Centers...)
	out.Truth.Spreads = append([]float64(nil), d.Truth.Spreads...)
	return out
}

func (d *Dataset) pointsOrNil() []LabeledPoint {
	if d == nil {
		return nil
	}
	return d.Points
}

// FromPoints builds a dataset of the given kind from explicit points.
func FromPoints(kind Kind, points []LabeledPoint) *Dataset {
	return &Dataset{Kind: kind, Points: append([]LabeledPoint(nil), points...)}
}
