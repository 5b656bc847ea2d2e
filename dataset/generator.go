package dataset

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/pkg/log"
)

// SVMPoints is the fixed size of every SVM dataset.
const SVMPoints = 50

// Sampling bounds. Clustering data and initial centroids share [0, ClusterExtent]².
const (
	RegressionXMax = 10.0
	ClusterExtent  = 8.0
	PlaneExtent    = 10.0
)

// Regime is the separation pattern of an SVM dataset.
type Regime int

const (
	// RegimeLinear labels points by x+y > 10.
	RegimeLinear Regime = iota
	// RegimeCircular places class 0 on an inner ring and class 1 on an outer ring.
	RegimeCircular
	// RegimeDiagonal labels points by y > x + noise.
	RegimeDiagonal
)

func (r Regime) String() string {
	switch r {
	case RegimeLinear:
		return "linear"
	case RegimeCircular:
		return "circular"
	case RegimeDiagonal:
		return "diagonal"
	default:
		return "unknown"
	}
}

// Params are the user-facing generator settings. They configure the sampled
// data only; the true slope, intercept or centers are drawn per call.
type Params struct {
	// NumPoints is the number of points for regression and clustering.
	// SVM datasets always have SVMPoints points.
	NumPoints int
	// NoiseLevel scales regression noise: (U-0.5)·NoiseLevel·10.
	NoiseLevel float64
}

// NewSource returns a rand.Rand seeded with seed, or with the clock when
// seed is negative.
func NewSource(seed int64) *rand.Rand {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate draws a new dataset for kind. Two calls with identically seeded
// sources and equal params return identical datasets.
func Generate(kind Kind, p Params, rng *rand.Rand) (*Dataset, error) {
	if rng == nil {
		return nil, errors.NewValueError("Generate", "random source is nil")
	}
	if kind != SVM && p.NumPoints <= 0 {
		return nil, errors.NewValidationError("num_points", "must be positive", p.NumPoints)
	}
	if p.NoiseLevel < 0 || !errors.IsFinite(p.NoiseLevel) {
		return nil, errors.NewValidationError("noise_level", "must be a finite non-negative number", p.NoiseLevel)
	}

	var ds *Dataset
	switch kind {
	case Regression:
		ds = generateRegression(p, rng)
	case Clustering:
		ds = generateClustering(p, rng)
	case SVM:
		ds = generateSVM(rng)
	default:
		return nil, errors.NewValueError("Generate", "unknown model kind: "+kind.String())
	}

	logger := log.GetLoggerWithName("dataset")
	if logger.Enabled(context.Background(), log.LevelDebug) {
		fields := []any{log.ModelKindKey, kind.String(), log.SamplesKey, ds.Len()}
		if kind == SVM {
			fields = append(fields, log.RegimeKey, ds.Truth.Regime.String())
		}
		logger.Debug("dataset generated", fields...)
	}
	return ds, nil
}

// GenerateCentroids draws k initial centroids uniformly over [0, ClusterExtent]².
// They are independent of any natural cluster centers.
func GenerateCentroids(k int, rng *rand.Rand) ([]Point, error) {
	if k <= 0 {
		return nil, errors.NewValidationError("k", "must be positive", k)
	}
	if rng == nil {
		return nil, errors.NewValueError("GenerateCentroids", "random source is nil")
	}
	centroids := make([]Point, k)
	for i := range centroids {
		centroids[i] = Point{X: rng.Float64() * ClusterExtent, Y: rng.Float64() * ClusterExtent}
	}
	return centroids, nil
}

func generateRegression(p Params, rng *rand.Rand) *Dataset {
	slope := rng.Float64() * 4
	intercept := rng.Float64() * 6

	points := make([]LabeledPoint, p.NumPoints)
	for i := range points {
		x := rng.Float64() * RegressionXMax
		noise := (rng.Float64() - 0.5) * p.NoiseLevel * 10
		y := slope*x + intercept + noise
		points[i] = LabeledPoint{Point: Point{X: round2(x), Y: round2(y)}}
	}

	return &Dataset{
		Kind:   Regression,
		Points: points,
		Truth:  Truth{Slope: slope, Intercept: intercept},
	}
}

func generateClustering(p Params, rng *rand.Rand) *Dataset {
	numNatural := rng.Intn(3) + 2
	perCluster := p.NumPoints / numNatural

	points := make([]LabeledPoint, 0, p.NumPoints)
	truth := Truth{
		Centers: make([]Point, 0, numNatural),
		Spreads: make([]float64, 0, numNatural),
	}

	for c := 0; c < numNatural; c++ {
		center := Point{X: rng.Float64()*6 + 1, Y: rng.Float64()*6 + 1}
		spread := rng.Float64()*1.5 + 0.5
		truth.Centers = append(truth.Centers, center)
		truth.Spreads = append(truth.Spreads, spread)

		for i := 0; i < perCluster; i++ {
			points = append(points, LabeledPoint{Point: Point{
				X: center.X + (rng.Float64()-0.5)*spread*2,
				Y: center.Y + (rng.Float64()-0.5)*spread*2,
			}})
		}
	}

	// 割り切れなかった残りは一様ノイズ
	for len(points) < p.NumPoints {
		points = append(points, LabeledPoint{Point: Point{
			X: rng.Float64() * ClusterExtent,
			Y: rng.Float64() * ClusterExtent,
		}})
	}

	return &Dataset{Kind: Clustering, Points: points, Truth: truth}
}

func generateSVM(rng *rand.Rand) *Dataset {
	regime := Regime(rng.Intn(3))
	points := make([]LabeledPoint, SVMPoints)

	for i := range points {
		switch regime {
		case RegimeLinear:
			x := rng.Float64()*8 + 1
			y := rng.Float64()*8 + 1
			points[i] = LabeledPoint{Point: Point{X: x, Y: y}, Label: boolLabel(x+y > 10)}
		case RegimeCircular:
			angle := rng.Float64() * 2 * math.Pi
			inner := i < SVMPoints/2
			radius := rng.Float64() * 3
			if inner {
				radius += 1
			} else {
				radius += 4
			}
			x := 5 + radius*math.Cos(angle)
			y := 5 + radius*math.Sin(angle)
			points[i] = LabeledPoint{
				Point: Point{X: errors.ClipValue(x, 0.5, 9.5), Y: errors.ClipValue(y, 0.5, 9.5)},
				Label: boolLabel(!inner),
			}
		default:
			x := rng.Float64()*8 + 1
			y := rng.Float64()*8 + 1
			noise := (rng.Float64() - 0.5) * 2
			points[i] = LabeledPoint{Point: Point{X: x, Y: y}, Label: boolLabel(y > x+noise)}
		}
	}

	return &Dataset{Kind: SVM, Points: points, Truth: Truth{Regime: regime}}
}

func boolLabel(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
