package svm

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

func lp(x, y float64, label int) dataset.LabeledPoint {
	return dataset.LabeledPoint{Point: dataset.Point{X: x, Y: y}, Label: label}
}

func TestLinearBoundaryStaysInPlane(t *testing.T) {
	rng := dataset.NewSource(17)
	est := NewBoundaryEstimator()

	for trial := 0; trial < 30; trial++ {
		ds, err := dataset.Generate(dataset.SVM, dataset.Params{}, rng)
		require.NoError(t, err)

		b, err := est.Estimate(context.Background(), ds)
		require.NoError(t, err)
		assert.Equal(t, Linear, b.Kernel)

		for _, p := range b.Points {
			assert.True(t, p.X >= 0 && p.X <= 10, "x out of range: %v", p.X)
			assert.True(t, p.Y >= 0 && p.Y <= 10, "y out of range: %v", p.Y)
		}
	}
}

func TestLinearBoundaryBisector(t *testing.T) {
	// クラス中心 (2,2) と (8,8) → 中点 (5,5)、傾き -6/6.001
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{
		lp(1, 1, 0), lp(3, 3, 0),
		lp(7, 7, 1), lp(9, 9, 1),
	})

	b, err := NewBoundaryEstimator(WithKernel(Linear)).Estimate(context.Background(), ds)
	require.NoError(t, err)

	slope := -6 / 6.001
	assert.InDelta(t, slope, LinearSlope(dataset.Point{X: 2, Y: 2}, dataset.Point{X: 8, Y: 8}), 1e-12)

	// x = 0, 0.2, ..., 10 の全51点が [0,10] に収まる
	require.Len(t, b.Points, 51)
	for i, p := range b.Points {
		assert.InDelta(t, float64(i)*0.2, p.X, 1e-12)
		assert.InDelta(t, 5+slope*(p.X-5), p.Y, 1e-9)
	}
}

func TestLinearBoundarySameY(t *testing.T) {
	// Δy = 0 でも有限の傾きになる
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{
		lp(4, 5, 0), lp(6, 5, 1),
	})

	b, err := NewBoundaryEstimator().Estimate(context.Background(), ds)
	require.NoError(t, err)

	slope := LinearSlope(dataset.Point{X: 4, Y: 5}, dataset.Point{X: 6, Y: 5})
	assert.False(t, math.IsInf(slope, 0))
	assert.InDelta(t, -2000, slope, 1e-9)

	// ほぼ垂直な線なので x=5 付近の1点だけ残る
	require.Len(t, b.Points, 1)
	assert.InDelta(t, 5.0, b.Points[0].X, 1e-12)
}

func TestLinearBoundaryMissingClass(t *testing.T) {
	tests := []struct {
		name string
		ds   *dataset.Dataset
	}{
		{"nil dataset", nil},
		{"empty dataset", dataset.FromPoints(dataset.SVM, nil)},
		{"only class 0", dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{lp(1, 1, 0), lp(2, 2, 0)})},
		{"only class 1", dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{lp(8, 8, 1)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBoundaryEstimator().Estimate(context.Background(), tt.ds)
			require.NoError(t, err)
			assert.Empty(t, b.Points)
			assert.NotNil(t, b.Points)
		})
	}
}

func TestRBFBoundaryNearZeroSum(t *testing.T) {
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{
		lp(3, 5, 0), lp(7, 5, 1),
	})
	est := NewBoundaryEstimator(WithKernel(RBF), WithGamma(0.5))

	b, err := est.Estimate(context.Background(), ds)
	require.NoError(t, err)
	require.NotEmpty(t, b.Points)
	assert.Equal(t, RBF, b.Kernel)

	for _, g := range b.Points {
		assert.Less(t, math.Abs(DecisionValue(ds.Points, g, 0.5)), 0.1)
		assert.True(t, g.X >= 0 && g.X <= 10+1e-9 && g.Y >= 0 && g.Y <= 10+1e-9)
	}

	// 2点の垂直二等分線 x=5 上はちょうど0なので必ず含まれる
	onBisector := 0
	for _, g := range b.Points {
		if math.Abs(g.X-5) < 1e-9 {
			onBisector++
		}
	}
	assert.Equal(t, 101, onBisector)
	assert.Same(t, b, est.Boundary())
}

func TestRBFBoundaryGridOrder(t *testing.T) {
	rng := dataset.NewSource(4)
	ds, err := dataset.Generate(dataset.SVM, dataset.Params{}, rng)
	require.NoError(t, err)

	est := NewBoundaryEstimator(WithKernel(RBF), WithGamma(1))
	a, err := est.Estimate(context.Background(), ds)
	require.NoError(t, err)
	b, err := est.Estimate(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, a.Points, b.Points)

	// 行優先 (x, y) の昇順
	for i := 1; i < len(a.Points); i++ {
		prev, cur := a.Points[i-1], a.Points[i]
		assert.True(t, prev.X < cur.X || (prev.X == cur.X && prev.Y < cur.Y))
	}
}

func TestRBFBoundaryEmptyAndCancelled(t *testing.T) {
	est := NewBoundaryEstimator(WithKernel(RBF))

	b, err := est.Estimate(context.Background(), dataset.FromPoints(dataset.SVM, nil))
	require.NoError(t, err)
	assert.Empty(t, b.Points)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{lp(3, 5, 0), lp(7, 5, 1)})
	_, err = est.Estimate(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRBFMaxPoints(t *testing.T) {
	// 円形データと同じくラベル順に並んだ点
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{
		lp(3, 5, 0), lp(3, 6, 0), lp(7, 5, 1), lp(7, 6, 1),
	})

	capped, err := NewBoundaryEstimator(WithKernel(RBF), WithMaxPoints(2)).Estimate(context.Background(), ds)
	require.NoError(t, err)
	spread, err := NewBoundaryEstimator(WithKernel(RBF)).Estimate(context.Background(),
		dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{ds.Points[0], ds.Points[2]}))
	require.NoError(t, err)

	require.NotEmpty(t, capped.Points)
	assert.Equal(t, spread.Points, capped.Points)
}

func TestSubsampleKeepsBothClasses(t *testing.T) {
	points := make([]dataset.LabeledPoint, 50)
	for i := range points {
		label := 0
		if i >= 25 {
			label = 1
		}
		points[i] = lp(float64(i%10), float64(i/10), label)
	}

	for _, n := range []int{2, 10, 25} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			got := subsample(points, n)
			require.Len(t, got, n)
			counts := map[int]int{}
			for _, p := range got {
				counts[p.Label]++
			}
			assert.Positive(t, counts[0])
			assert.Positive(t, counts[1])
		})
	}
}

func TestGridSize(t *testing.T) {
	assert.Equal(t, 101, gridSize(0.1))
	assert.Equal(t, 51, gridSize(0.2))
	assert.Equal(t, 11, gridSize(1))
	assert.Equal(t, 2, gridSize(10))
}

func TestEstimatorValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero gamma", WithGamma(0)},
		{"nan gamma", WithGamma(math.NaN())},
		{"negative C", WithC(-1)},
		{"zero grid step", WithGridStep(0)},
		{"zero threshold", WithThreshold(0)},
		{"negative max points", WithMaxPoints(-1)},
		{"unknown kernel", WithKernel(Kernel(7))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundaryEstimator(tt.opt).Estimate(context.Background(), nil)
			var vErr *errors.ValidationError
			assert.True(t, errors.As(err, &vErr))
		})
	}
}

func TestParseKernel(t *testing.T) {
	k, err := ParseKernel("rbf")
	require.NoError(t, err)
	assert.Equal(t, RBF, k)
	assert.Equal(t, "linear", Linear.String())

	_, err = ParseKernel("poly")
	assert.Error(t, err)
}
