package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mlsim/dataset"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{0, 1, 1, 0}, []int{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy(nil, nil)
	assert.Error(t, err)

	_, err = Accuracy([]int{1}, []int{1, 0})
	assert.Error(t, err)
}

func TestThresholdAccuracy(t *testing.T) {
	ds := dataset.FromPoints(dataset.SVM, []dataset.LabeledPoint{
		{Point: dataset.Point{X: 8, Y: 8}, Label: 1},
		{Point: dataset.Point{X: 1, Y: 1}, Label: 0},
		{Point: dataset.Point{X: 5, Y: 5}, Label: 1}, // x+y == 10 → rule says 0
		{Point: dataset.Point{X: 9, Y: 2}, Label: 0}, // rule says 1
	})
	assert.InDelta(t, 0.5, ThresholdAccuracy(ds), 1e-12)
	assert.Equal(t, 0.0, ThresholdAccuracy(dataset.FromPoints(dataset.SVM, nil)))
}

func TestThresholdAccuracyLinearRegimeIsPerfect(t *testing.T) {
	rng := dataset.NewSource(8)
	found := false
	for i := 0; i < 30 && !found; i++ {
		ds, err := dataset.Generate(dataset.SVM, dataset.Params{}, rng)
		require.NoError(t, err)
		if ds.Truth.Regime != dataset.RegimeLinear {
			continue
		}
		found = true
		assert.Equal(t, 1.0, ThresholdAccuracy(ds))
	}
	assert.True(t, found)
}
