package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewValueError("MSE", "yTrue and yPred lengths differ")
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。
// 全変動が0（yTrueがすべて同じ値）の場合は定義できないためエラーを返す。
func R2Score(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewValueError("R2Score", "yTrue and yPred lengths differ")
	}

	rss, tss := sumsOfSquares(yTrue, yPred)
	if isConstant(yTrue) || tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

// sumsOfSquares は残差平方和（RSS）と全平方和（TSS）を返す
func sumsOfSquares(yTrue, yPred []float64) (rss, tss float64) {
	res := make([]float64, len(yTrue))
	floats.SubTo(res, yTrue, yPred)
	rss = floats.Dot(res, res)

	centered := make([]float64, len(yTrue))
	copy(centered, yTrue)
	floats.AddConst(-stat.Mean(yTrue, nil), centered)
	tss = floats.Dot(centered, centered)
	return rss, tss
}

// isConstant はすべての値が等しいかを返す。
// 平均の丸め誤差でTSSが厳密な0にならないため、TSSより先に判定する。
func isConstant(v []float64) bool {
	return floats.Max(v) == floats.Min(v)
}

// FitMetrics は直線 y = slope·x + intercept の当てはまりの指標
type FitMetrics struct {
	MSE float64 `json:"mse"`
	R2  float64 `json:"r2"`
	// R2Defined はyの分散が0でR²が定義できない場合にfalseになる。そのときR2は0。
	R2Defined bool `json:"r2_defined"`
	N         int  `json:"n"`
}

// EvaluateLinearFit はデータセットに対する直線の MSE と R² を計算する。
//
// 空のデータセットではゼロ値を返す。yの分散が0の場合はR2=0, R2Defined=false とする。
// 警告は発行しないので、呼び出し側がR2Definedを見て扱う。NaN/Inf を返すことはない。
func EvaluateLinearFit(ds *dataset.Dataset, slope, intercept float64) FitMetrics {
	if ds.Len() == 0 {
		return FitMetrics{}
	}

	yTrue := ds.Ys()
	yPred := Predictions(ds, slope, intercept)
	rss, tss := sumsOfSquares(yTrue, yPred)

	m := FitMetrics{
		MSE: rss / float64(len(yTrue)),
		N:   len(yTrue),
	}
	if isConstant(yTrue) || tss == 0 {
		return m
	}

	r2 := 1 - rss/tss
	if errors.CheckScalar("EvaluateLinearFit", r2, 0) != nil {
		return m
	}
	m.R2 = r2
	m.R2Defined = true
	return m
}

// Predictions は各点の予測値 slope·x + intercept をデータセット順に返す
func Predictions(ds *dataset.Dataset, slope, intercept float64) []float64 {
	pred := ds.Xs()
	floats.Scale(slope, pred)
	floats.AddConst(intercept, pred)
	return pred
}

// Line sampling for the fitted-line chart.
const (
	LineXMax = 10.0
	LineStep = 0.5
)

// PredictedLine は x = 0, 0.5, ..., 10 における直線上の点を返す（21点）
func PredictedLine(slope, intercept float64) []dataset.Point {
	n := int(LineXMax/LineStep) + 1
	line := make([]dataset.Point, n)
	for i := range line {
		x := float64(i) * LineStep
		line[i] = dataset.Point{X: x, Y: slope*x + intercept}
	}
	return line
}
