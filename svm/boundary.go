// Package svm estimates an SVM-like decision boundary over a labeled 2-D
// dataset for visualization.
//
// Neither path solves the SVM optimization problem. The linear kernel draws
// the perpendicular bisector of the two class centroids; the RBF kernel
// samples a grid and keeps points where the signed kernel sum is near zero.
package svm

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlsim/core/parallel"
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/pkg/log"
)

// Kernel selects the boundary estimation path.
type Kernel int

const (
	// Linear draws a straight line between the class centroids.
	Linear Kernel = iota
	// RBF draws the near-zero level set of a signed Gaussian kernel sum.
	RBF
)

func (k Kernel) String() string {
	switch k {
	case Linear:
		return "linear"
	case RBF:
		return "rbf"
	default:
		return fmt.Sprintf("kernel(%d)", int(k))
	}
}

// ParseKernel parses "linear" or "rbf".
func ParseKernel(s string) (Kernel, error) {
	switch s {
	case "linear":
		return Linear, nil
	case "rbf":
		return RBF, nil
	default:
		return Linear, errors.NewValueError("ParseKernel", fmt.Sprintf("unknown kernel %q", s))
	}
}

const (
	// PlaneMin and PlaneMax bound the sampled plane on both axes.
	PlaneMin = 0.0
	PlaneMax = dataset.PlaneExtent

	// LinearStep is the x sampling step of the linear boundary.
	LinearStep = 0.2

	// slopeEpsilon keeps the slope finite when both centroids share a y.
	slopeEpsilon = 0.001

	// parallelRows 以上の行数でグリッド走査を並列化する
	parallelRows = 16
)

// Boundary is the sampled decision boundary.
type Boundary struct {
	Kernel Kernel
	Points []dataset.Point
}

// Len returns the number of boundary samples.
func (b *Boundary) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Points)
}

// BoundaryEstimator produces a Boundary from a labeled dataset.
type BoundaryEstimator struct {
	kernel    Kernel
	gamma     float64
	c         float64
	gridStep  float64
	threshold float64
	maxPoints int

	mu       sync.RWMutex
	boundary *Boundary
	logger   log.Logger
}

// Option configures a BoundaryEstimator.
type Option func(*BoundaryEstimator)

// WithKernel sets the kernel.
func WithKernel(k Kernel) Option {
	return func(e *BoundaryEstimator) { e.kernel = k }
}

// WithGamma sets the RBF width.
func WithGamma(gamma float64) Option {
	return func(e *BoundaryEstimator) { e.gamma = gamma }
}

// WithC sets the regularization parameter. It is validated and reported but
// does not affect either estimation path.
func WithC(c float64) Option {
	return func(e *BoundaryEstimator) { e.c = c }
}

// WithGridStep sets the RBF grid resolution.
func WithGridStep(step float64) Option {
	return func(e *BoundaryEstimator) { e.gridStep = step }
}

// WithThreshold sets the |sum| cutoff for RBF boundary membership.
func WithThreshold(t float64) Option {
	return func(e *BoundaryEstimator) { e.threshold = t }
}

// WithMaxPoints caps the number of dataset points the RBF sum visits,
// sampled at an even stride over the dataset.
// 0 means no cap.
func WithMaxPoints(n int) Option {
	return func(e *BoundaryEstimator) { e.maxPoints = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *BoundaryEstimator) { e.logger = l }
}

// NewBoundaryEstimator creates an estimator with a linear kernel, gamma 1,
// C 1, grid step 0.1 and threshold 0.1.
func NewBoundaryEstimator(opts ...Option) *BoundaryEstimator {
	e := &BoundaryEstimator{
		kernel:    Linear,
		gamma:     1,
		c:         1,
		gridStep:  0.1,
		threshold: 0.1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("svm.boundary")
	}
	return e
}

// Validate checks the estimator options.
func (e *BoundaryEstimator) Validate() error {
	if e.kernel != Linear && e.kernel != RBF {
		return errors.NewValidationError("kernel", "must be linear or rbf", e.kernel)
	}
	if !(e.gamma > 0) || !errors.IsFinite(e.gamma) {
		return errors.NewValidationError("gamma", "must be a positive finite number", e.gamma)
	}
	if !(e.c > 0) || !errors.IsFinite(e.c) {
		return errors.NewValidationError("C", "must be a positive finite number", e.c)
	}
	if !(e.gridStep > 0) || e.gridStep > PlaneMax-PlaneMin {
		return errors.NewValidationError("grid_step", "must be in (0, 10]", e.gridStep)
	}
	if !(e.threshold > 0) {
		return errors.NewValidationError("threshold", "must be positive", e.threshold)
	}
	if e.maxPoints < 0 {
		return errors.NewValidationError("max_points", "must be non-negative", e.maxPoints)
	}
	return nil
}

// Kernel returns the configured kernel.
func (e *BoundaryEstimator) Kernel() Kernel { return e.kernel }

// Gamma returns the configured RBF width.
func (e *BoundaryEstimator) Gamma() float64 { return e.gamma }

// Boundary returns the last estimated boundary, or nil.
func (e *BoundaryEstimator) Boundary() *Boundary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.boundary
}

// Estimate computes the boundary for ds. An empty dataset, or a linear
// estimate with one class missing, yields an empty boundary and no error.
func (e *BoundaryEstimator) Estimate(ctx context.Context, ds *dataset.Dataset) (*Boundary, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var (
		b   *Boundary
		err error
	)
	switch e.kernel {
	case RBF:
		b, err = e.estimateRBF(ctx, ds)
	default:
		b = e.estimateLinear(ds)
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.boundary = b
	e.mu.Unlock()

	e.logger.Debug("boundary estimated",
		log.OperationKey, log.OperationTrain,
		log.KernelKey, e.kernel.String(),
		log.GammaKey, e.gamma,
		log.SamplesKey, ds.Len(),
		log.BoundaryPointsKey, b.Len(),
	)
	return b, nil
}

// Reset discards the last boundary.
func (e *BoundaryEstimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.boundary = nil
}

func (e *BoundaryEstimator) estimateLinear(ds *dataset.Dataset) *Boundary {
	b := &Boundary{Kernel: Linear, Points: []dataset.Point{}}

	c0, ok0 := classCentroid(ds, 0)
	c1, ok1 := classCentroid(ds, 1)
	if !ok0 || !ok1 {
		return b
	}

	mid := dataset.Point{X: (c0.X + c1.X) / 2, Y: (c0.Y + c1.Y) / 2}
	slope := LinearSlope(c0, c1)

	steps := int(math.Round((PlaneMax - PlaneMin) / LinearStep))
	for i := 0; i <= steps; i++ {
		x := PlaneMin + float64(i)*LinearStep
		y := mid.Y + slope*(x-mid.X)
		if y >= PlaneMin && y <= PlaneMax {
			b.Points = append(b.Points, dataset.Point{X: x, Y: y})
		}
	}
	return b
}

// LinearSlope is the slope of the line perpendicular to c0→c1:
// -(Δx)/(Δy + 0.001).
func LinearSlope(c0, c1 dataset.Point) float64 {
	return -(c1.X - c0.X) / (c1.Y - c0.Y + slopeEpsilon)
}

func classCentroid(ds *dataset.Dataset, label int) (dataset.Point, bool) {
	var xs, ys []float64
	for _, p := range pointsOf(ds) {
		if p.Label == label {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return dataset.Point{}, false
	}
	return dataset.Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}, true
}

func (e *BoundaryEstimator) estimateRBF(ctx context.Context, ds *dataset.Dataset) (*Boundary, error) {
	points := pointsOf(ds)
	if len(points) == 0 {
		return &Boundary{Kernel: RBF, Points: []dataset.Point{}}, nil
	}
	if e.maxPoints > 0 && len(points) > e.maxPoints {
		points = subsample(points, e.maxPoints)
	}

	n := gridSize(e.gridStep)
	rows := make([][]dataset.Point, n)

	err := parallel.ParallelizeWithThreshold(ctx, n, parallelRows, func(start, end int) error {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			x := PlaneMin + float64(i)*e.gridStep
			for j := 0; j < n; j++ {
				g := dataset.Point{X: x, Y: PlaneMin + float64(j)*e.gridStep}
				if math.Abs(DecisionValue(points, g, e.gamma)) < e.threshold {
					rows[i] = append(rows[i], g)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "rbf grid scan")
	}

	b := &Boundary{Kernel: RBF, Points: []dataset.Point{}}
	for _, row := range rows {
		b.Points = append(b.Points, row...)
	}
	return b, nil
}

// subsample picks n points at an even stride over points, so both classes
// survive when the dataset is ordered by label.
func subsample(points []dataset.LabeledPoint, n int) []dataset.LabeledPoint {
	out := make([]dataset.LabeledPoint, n)
	for i := range out {
		out[i] = points[i*len(points)/n]
	}
	return out
}

// DecisionValue is Σ s·exp(-γ‖g-p‖²) over points, with s = -1 for label 0
// and +1 otherwise.
func DecisionValue(points []dataset.LabeledPoint, g dataset.Point, gamma float64) float64 {
	sum := 0.0
	for _, p := range points {
		dx := g.X - p.X
		dy := g.Y - p.Y
		k := errors.StabilizeExp(-gamma * (dx*dx + dy*dy))
		if p.Label == 0 {
			sum -= k
		} else {
			sum += k
		}
	}
	return sum
}

func pointsOf(ds *dataset.Dataset) []dataset.LabeledPoint {
	if ds == nil {
		return nil
	}
	return ds.Points
}

// gridSize is the number of samples per axis with both ends included.
func gridSize(step float64) int {
	return int(math.Floor((PlaneMax-PlaneMin)/step+1e-9)) + 1
}
