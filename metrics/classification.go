package metrics

import (
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

// Accuracy は正解ラベルと予測ラベルの一致率を計算する
func Accuracy(yTrue, yPred []int) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewValueError("Accuracy", "yTrue and yPred lengths differ")
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ThresholdRule is the fixed rule behind ThresholdAccuracy: x+y > 10.
func ThresholdRule(p dataset.Point) int {
	if p.X+p.Y > 10 {
		return 1
	}
	return 0
}

// ThresholdAccuracy scores the dataset labels against ThresholdRule.
//
// This is a placeholder metric: it does not look at any estimated boundary,
// so it is only meaningful for the linear regime. Empty datasets score 0.
func ThresholdAccuracy(ds *dataset.Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}
	pred := make([]int, ds.Len())
	for i, p := range ds.Points {
		pred[i] = ThresholdRule(p.Point)
	}
	acc, _ := Accuracy(ds.Labels(), pred)
	return acc
}
