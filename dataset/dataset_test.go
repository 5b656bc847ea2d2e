package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "regression", want: Regression},
		{in: "linear-regression", want: Regression},
		{in: " K-Means ", want: Clustering},
		{in: "clustering", want: Clustering},
		{in: "svm", want: SVM},
		{in: "decision-tree", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Kind {
	t.Helper()
	k, err := ParseKind(s)
	require.NoError(t, err)
	return k
}

func TestDatasetAccessors(t *testing.T) {
	ds := FromPoints(SVM, []LabeledPoint{
		{Point: Point{X: 1, Y: 5}, Label: 0},
		{Point: Point{X: 3, Y: -2}, Label: 1},
		{Point: Point{X: 2, Y: 4}, Label: 1},
	})

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []float64{1, 3, 2}, ds.Xs())
	assert.Equal(t, []float64{5, -2, 4}, ds.Ys())
	assert.Equal(t, []int{0, 1, 1}, ds.Labels())

	neg, pos := ds.ClassCounts()
	assert.Equal(t, 1, neg)
	assert.Equal(t, 2, pos)

	lo, hi := ds.Bounds()
	assert.Equal(t, Point{X: 1, Y: -2}, lo)
	assert.Equal(t, Point{X: 3, Y: 5}, hi)
}

func TestDatasetEmptyAndNil(t *testing.T) {
	var nilDS *Dataset
	assert.Equal(t, 0, nilDS.Len())
	assert.Nil(t, nilDS.Clone())
	neg, pos := nilDS.ClassCounts()
	assert.Zero(t, neg+pos)

	empty := FromPoints(Clustering, nil)
	lo, hi := empty.Bounds()
	assert.Equal(t, Point{}, lo)
	assert.Equal(t, Point{}, hi)
}

func TestDatasetCloneIsDeep(t *testing.T) {
	ds, err := Generate(Clustering, Params{NumPoints: 20}, NewSource(9))
	require.NoError(t, err)

	cp := ds.Clone()
	require.Equal(t, ds, cp)

	cp.Points[0].X = -100
	cp.Truth.Centers[0].X = -100
	assert.NotEqual(t, -100.0, ds.Points[0].X)
	assert.NotEqual(t, -100.0, ds.Truth.Centers[0].X)
}
