package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

func TestGenerateDeterministicGivenSeed(t *testing.T) {
	for _, kind := range []Kind{Regression, Clustering, SVM} {
		t.Run(kind.String(), func(t *testing.T) {
			p := Params{NumPoints: 97, NoiseLevel: 0.5}

			a, err := Generate(kind, p, NewSource(42))
			require.NoError(t, err)
			b, err := Generate(kind, p, NewSource(42))
			require.NoError(t, err)

			assert.Equal(t, a, b)

			c, err := Generate(kind, p, NewSource(43))
			require.NoError(t, err)
			assert.NotEqual(t, a.Points, c.Points)
		})
	}
}

func TestGenerateRegression(t *testing.T) {
	rng := NewSource(7)
	for trial := 0; trial < 20; trial++ {
		ds, err := Generate(Regression, Params{NumPoints: 50, NoiseLevel: 2}, rng)
		require.NoError(t, err)
		require.Equal(t, 50, ds.Len())
		assert.Equal(t, Regression, ds.Kind)

		assert.GreaterOrEqual(t, ds.Truth.Slope, 0.0)
		assert.Less(t, ds.Truth.Slope, 4.0)
		assert.GreaterOrEqual(t, ds.Truth.Intercept, 0.0)
		assert.Less(t, ds.Truth.Intercept, 6.0)

		for _, p := range ds.Points {
			assert.GreaterOrEqual(t, p.X, 0.0)
			assert.LessOrEqual(t, p.X, 10.0)
			// 2桁に丸められている
			assert.InDelta(t, p.X, math.Round(p.X*100)/100, 1e-12)
			assert.InDelta(t, p.Y, math.Round(p.Y*100)/100, 1e-12)
			// |noise| <= 0.5 * 2 * 10 plus rounding
			assert.LessOrEqual(t, math.Abs(p.Y-(ds.Truth.Slope*p.X+ds.Truth.Intercept)), 10.0+0.05)
		}
	}
}

func TestGenerateRegressionNoiseless(t *testing.T) {
	ds, err := Generate(Regression, Params{NumPoints: 200, NoiseLevel: 0}, NewSource(1))
	require.NoError(t, err)

	for _, p := range ds.Points {
		// only rounding error remains: 0.005 on y plus slope * 0.005 on x
		assert.InDelta(t, ds.Truth.Slope*p.X+ds.Truth.Intercept, p.Y, 0.03)
	}
}

func TestGenerateClustering(t *testing.T) {
	rng := NewSource(11)
	for _, n := range []int{50, 99, 100, 101, 200} {
		ds, err := Generate(Clustering, Params{NumPoints: n}, rng)
		require.NoError(t, err)
		require.Equal(t, n, ds.Len(), "point count must match request")

		m := len(ds.Truth.Centers)
		assert.GreaterOrEqual(t, m, 2)
		assert.LessOrEqual(t, m, 4)
		require.Len(t, ds.Truth.Spreads, m)

		perCluster := n / m
		for c := 0; c < m; c++ {
			center, spread := ds.Truth.Centers[c], ds.Truth.Spreads[c]
			assert.True(t, center.X >= 1 && center.X <= 7 && center.Y >= 1 && center.Y <= 7)
			assert.True(t, spread >= 0.5 && spread < 2)
			for _, p := range ds.Points[c*perCluster : (c+1)*perCluster] {
				assert.LessOrEqual(t, math.Abs(p.X-center.X), spread)
				assert.LessOrEqual(t, math.Abs(p.Y-center.Y), spread)
			}
		}
		for _, p := range ds.Points[m*perCluster:] {
			assert.True(t, p.X >= 0 && p.X <= 8 && p.Y >= 0 && p.Y <= 8)
		}
	}
}

func TestGenerateSVM(t *testing.T) {
	seen := map[Regime]bool{}
	rng := NewSource(3)

	for trial := 0; trial < 60; trial++ {
		// NumPoints is ignored for SVM
		ds, err := Generate(SVM, Params{NumPoints: 7}, rng)
		require.NoError(t, err)
		require.Equal(t, SVMPoints, ds.Len())
		seen[ds.Truth.Regime] = true

		for i, p := range ds.Points {
			assert.True(t, p.Label == 0 || p.Label == 1)
			switch ds.Truth.Regime {
			case RegimeLinear:
				assert.Equal(t, boolLabel(p.X+p.Y > 10), p.Label)
			case RegimeCircular:
				assert.Equal(t, boolLabel(i >= SVMPoints/2), p.Label)
				assert.True(t, p.X >= 0.5 && p.X <= 9.5 && p.Y >= 0.5 && p.Y <= 9.5)
			case RegimeDiagonal:
				// noise is within ±1 of the diagonal
				if p.Y > p.X+1 {
					assert.Equal(t, 1, p.Label)
				}
				if p.Y <= p.X-1 {
					assert.Equal(t, 0, p.Label)
				}
			}
		}

		if ds.Truth.Regime == RegimeCircular {
			neg, pos := ds.ClassCounts()
			assert.Equal(t, 25, neg)
			assert.Equal(t, 25, pos)
		}
	}

	assert.Len(t, seen, 3, "all three regimes should appear over 60 draws")
}

func TestGenerateValidation(t *testing.T) {
	_, err := Generate(Regression, Params{NumPoints: 0}, NewSource(1))
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = Generate(Regression, Params{NumPoints: 10, NoiseLevel: -1}, NewSource(1))
	assert.Error(t, err)

	_, err = Generate(Kind(9), Params{NumPoints: 10}, NewSource(1))
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))

	_, err = Generate(Regression, Params{NumPoints: 10}, nil)
	assert.Error(t, err)

	// SVM ignores NumPoints entirely
	_, err = Generate(SVM, Params{}, NewSource(1))
	assert.NoError(t, err)
}

func TestGenerateCentroids(t *testing.T) {
	c, err := GenerateCentroids(6, NewSource(5))
	require.NoError(t, err)
	require.Len(t, c, 6)
	for _, p := range c {
		assert.True(t, p.X >= 0 && p.X < 8 && p.Y >= 0 && p.Y < 8)
	}

	again, err := GenerateCentroids(6, NewSource(5))
	require.NoError(t, err)
	assert.Equal(t, c, again)

	_, err = GenerateCentroids(0, NewSource(5))
	assert.Error(t, err)
}
