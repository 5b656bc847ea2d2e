// Package cluster implements Lloyd's k-means over 2-D datasets with a fixed
// iteration budget, steppable one iteration at a time.
package cluster

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlsim/core/model"
	"github.com/YuminosukeSato/mlsim/core/parallel"
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/pkg/log"
)

// Centroid はクラスタ中心
type Centroid = dataset.Point

// assignParallelThreshold 以下の点数では割り当てを逐次処理する
const assignParallelThreshold = 4096

// KMeans はLloydアルゴリズムによるk-meansエンジン
//
// 状態遷移: Idle --Initialize--> Ready --Run/Step--> Stepping --> Ready、Resetで Idle。
// 既定では収束判定をせず、maxIter 回ちょうど反復する。
type KMeans struct {
	// ハイパーパラメータ
	nClusters   int     // クラスタ数 k
	maxIter     int     // 反復回数
	tol         float64 // セントロイド移動量の収束閾値（0で無効）
	randomState int64   // 乱数シード（負なら時刻）

	// 学習状態
	centroids_ []Centroid
	labels_    []int
	inertia_   float64
	nIter_     int

	// 内部状態
	mu     sync.RWMutex
	rng    *rand.Rand
	state  *model.StateManager
	logger log.Logger
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// WithNClusters はクラスタ数を設定
func WithNClusters(k int) KMeansOption {
	return func(km *KMeans) {
		km.nClusters = k
	}
}

// WithMaxIter は反復回数を設定
func WithMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) {
		km.maxIter = maxIter
	}
}

// WithTol は早期終了の閾値を設定。全セントロイドの移動量がtol以下になったら停止する。
func WithTol(tol float64) KMeansOption {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed int64) KMeansOption {
	return func(km *KMeans) {
		km.randomState = seed
		km.rng = dataset.NewSource(seed)
	}
}

// WithRand は乱数源を直接注入する（セッションと共有する場合など）
func WithRand(rng *rand.Rand) KMeansOption {
	return func(km *KMeans) {
		km.rng = rng
	}
}

// WithLogger はロガーを設定
func WithLogger(logger log.Logger) KMeansOption {
	return func(km *KMeans) {
		km.logger = logger
	}
}

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		nClusters:   3,
		maxIter:     10,
		tol:         0,
		randomState: -1,
		state:       model.NewStateManager(),
	}
	for _, opt := range options {
		opt(km)
	}
	if km.rng == nil {
		km.rng = dataset.NewSource(km.randomState)
	}
	if km.logger == nil {
		km.logger = log.GetLoggerWithName("cluster.kmeans")
	}
	return km
}

// Validate はハイパーパラメータを検証する
func (km *KMeans) Validate() error {
	if km.nClusters < 1 {
		return errors.NewValidationError("k", "must be at least 1", km.nClusters)
	}
	if km.maxIter < 1 {
		return errors.NewValidationError("max_iterations", "must be at least 1", km.maxIter)
	}
	if km.tol < 0 || !errors.IsFinite(km.tol) {
		return errors.NewValidationError("tol", "must be a finite non-negative number", km.tol)
	}
	return nil
}

// Initialize はセントロイドを [0,8]² に一様ランダムに配置し、Ready状態にする。
// データセットの構造（自然なクラスタ中心）は使わない。
func (km *KMeans) Initialize(ds *dataset.Dataset) ([]Centroid, error) {
	if err := km.Validate(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, errors.NewModelError("KMeans.Initialize", "empty dataset", errors.ErrEmptyData)
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.state.Prepare(); err != nil {
		return nil, err
	}

	centroids, err := dataset.GenerateCentroids(km.nClusters, km.rng)
	if err != nil {
		return nil, err
	}
	km.centroids_ = centroids
	km.labels_ = nil
	km.inertia_ = 0
	km.nIter_ = 0

	km.logger.Debug("centroids initialized",
		log.OperationKey, log.OperationInitialize,
		log.ClustersKey, km.nClusters,
		log.SamplesKey, ds.Len(),
	)
	return cloneCentroids(centroids), nil
}

// SetCentroids は外部で用意したセントロイドでReady状態にする。
// 個数はkと一致しなければならない。
func (km *KMeans) SetCentroids(centroids []Centroid) error {
	if len(centroids) != km.nClusters {
		return errors.NewValidationError("centroids", "count must equal k", len(centroids))
	}
	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.state.Prepare(); err != nil {
		return err
	}
	km.centroids_ = cloneCentroids(centroids)
	km.labels_ = nil
	km.inertia_ = 0
	km.nIter_ = 0
	return nil
}

// StepEvent は1回の反復結果
type StepEvent struct {
	Iteration     int        // 1始まり
	Assignments   []int      // 各点のクラスタ番号
	Centroids     []Centroid // 更新後のセントロイド
	Inertia       float64    // 更新後のセントロイドに対する慣性
	Shift         float64    // セントロイドの最大移動量
	EmptyClusters []int      // 割り当てが0で前回値を保持したクラスタ
}

// StepFunc は各反復の結果がエンジンに反映される前に呼ばれる。
// エラーを返すとその反復は反映されず、Runはそのエラーで終了する。
type StepFunc func(ev StepEvent) error

// Result はRunの結果
type Result struct {
	Assignments []int
	Centroids   []Centroid
	Inertia     float64
	NIter       int
	Converged   bool
	History     []float64 // 各反復後の慣性
}

// Step はエンジンの現在のセントロイドで1反復だけ進める。
// 空のデータセットでは状態を変えず、現在の状態をそのまま返す。
func (km *KMeans) Step(ds *dataset.Dataset) (StepEvent, error) {
	if err := km.state.Begin(); err != nil {
		return StepEvent{}, err
	}
	defer km.state.End()

	if ds.Len() == 0 {
		return km.current(), nil
	}
	ev, err := km.advance(context.Background(), ds)
	if err != nil {
		return StepEvent{}, err
	}
	km.commit(ev)
	return ev, nil
}

// Run はmaxIter回（tol>0なら収束まで）反復する。
// ctxのキャンセル、またはonStepのエラーで途中終了する。
func (km *KMeans) Run(ctx context.Context, ds *dataset.Dataset, onStep StepFunc) (*Result, error) {
	if ds.Len() == 0 {
		// 空データでは何もしない
		return &Result{Centroids: km.Centroids()}, nil
	}
	if err := km.state.Begin(); err != nil {
		return nil, err
	}
	defer km.state.End()

	res := &Result{History: make([]float64, 0, km.maxIter)}
	for iter := 0; iter < km.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return km.partial(res), err
		}

		ev, err := km.advance(ctx, ds)
		if err != nil {
			return km.partial(res), err
		}
		if onStep != nil {
			if err := onStep(ev); err != nil {
				return km.partial(res), err
			}
		}
		km.commit(ev)
		res.History = append(res.History, ev.Inertia)

		km.logger.Debug("step applied",
			log.OperationKey, log.OperationStep,
			log.IterationKey, ev.Iteration,
			log.InertiaKey, ev.Inertia,
		)
		for _, c := range ev.EmptyClusters {
			w := &errors.EmptyClusterWarning{Cluster: c, Iteration: ev.Iteration}
			km.logger.Debug(w.Error(), "warning", w)
		}

		if km.tol > 0 && ev.Shift <= km.tol {
			res.Converged = true
			break
		}
	}

	if km.tol > 0 && !res.Converged {
		errors.Warn(errors.NewConvergenceWarning("KMeans", km.maxIter, ""))
	}

	out := km.partial(res)
	km.logger.Info("k-means run finished",
		log.OperationKey, log.OperationRun,
		log.IterationKey, out.NIter,
		log.InertiaKey, out.Inertia,
	)
	return out, nil
}

// advance は現在のセントロイドから次の反復を計算する（状態は変更しない）
func (km *KMeans) advance(ctx context.Context, ds *dataset.Dataset) (StepEvent, error) {
	km.mu.RLock()
	prev := km.centroids_
	iter := km.nIter_
	km.mu.RUnlock()

	assign, err := AssignContext(ctx, ds, prev)
	if err != nil {
		return StepEvent{}, err
	}
	next, empty := Update(ds, assign, prev)
	return StepEvent{
		Iteration:     iter + 1,
		Assignments:   assign,
		Centroids:     next,
		Inertia:       Inertia(ds, assign, next),
		Shift:         maxShift(prev, next),
		EmptyClusters: empty,
	}, nil
}

// current は反映済みの状態をStepEventとして返す
func (km *KMeans) current() StepEvent {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return StepEvent{
		Iteration:   km.nIter_,
		Assignments: append([]int(nil), km.labels_...),
		Centroids:   cloneCentroids(km.centroids_),
		Inertia:     km.inertia_,
	}
}

func (km *KMeans) commit(ev StepEvent) {
	km.mu.Lock()
	defer km.mu.Unlock()
	km.centroids_ = ev.Centroids
	km.labels_ = ev.Assignments
	km.inertia_ = ev.Inertia
	km.nIter_ = ev.Iteration
}

func (km *KMeans) partial(res *Result) *Result {
	km.mu.RLock()
	defer km.mu.RUnlock()
	res.Assignments = append([]int(nil), km.labels_...)
	res.Centroids = cloneCentroids(km.centroids_)
	res.Inertia = km.inertia_
	res.NIter = km.nIter_
	return res
}

// Reset はIdle状態に戻し、学習状態を破棄する
func (km *KMeans) Reset() {
	km.mu.Lock()
	defer km.mu.Unlock()
	km.state.Reset()
	km.centroids_ = nil
	km.labels_ = nil
	km.inertia_ = 0
	km.nIter_ = 0
}

// State は現在の状態を返す
func (km *KMeans) State() model.State {
	return km.state.State()
}

// NClusters はクラスタ数kを返す
func (km *KMeans) NClusters() int {
	return km.nClusters
}

// MaxIter は反復回数を返す
func (km *KMeans) MaxIter() int {
	return km.maxIter
}

// NIterations は実行済みの反復数を返す
func (km *KMeans) NIterations() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.nIter_
}

// Centroids は現在のセントロイドのコピーを返す
func (km *KMeans) Centroids() []Centroid {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return cloneCentroids(km.centroids_)
}

// Labels は最後の割り当てを返す
func (km *KMeans) Labels() []int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	if km.labels_ == nil {
		return nil
	}
	return append([]int(nil), km.labels_...)
}

// Inertia は最後の反復後の慣性を返す
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia_
}

// ===========================================================================
// 純粋関数
// ===========================================================================

// Step はLloydアルゴリズムの1反復を行う純粋関数。
//
// 全点について全セントロイドとの距離を計算し最近傍に割り当て（同距離なら小さい番号）、
// 各クラスタの平均で新しいセントロイドを作る。割り当てが0のクラスタは前回の値を保持する。
// 空のデータセットでは割り当てnilと入力のコピーを返す。入力は変更しない。
func Step(ds *dataset.Dataset, centroids []Centroid) ([]int, []Centroid) {
	if ds.Len() == 0 || len(centroids) == 0 {
		return nil, cloneCentroids(centroids)
	}
	assign := Assign(ds, centroids)
	next, _ := Update(ds, assign, centroids)
	return assign, next
}

// Assign は各点を最近傍セントロイドに割り当てる（逐次処理）
func Assign(ds *dataset.Dataset, centroids []Centroid) []int {
	n := ds.Len()
	if n == 0 || len(centroids) == 0 {
		return nil
	}
	assign := make([]int, n)
	for i, p := range ds.Points {
		assign[i] = findNearestCluster(p.Point, centroids)
	}
	return assign
}

// AssignContext はAssignと同じ結果を返す。点数が多い場合は範囲ごとに並列処理し、
// ctxがキャンセルされるとそのエラーを返す。
func AssignContext(ctx context.Context, ds *dataset.Dataset, centroids []Centroid) ([]int, error) {
	n := ds.Len()
	if n == 0 || len(centroids) == 0 {
		return nil, ctx.Err()
	}
	assign := make([]int, n)
	// 各ワーカーは自分の範囲のみ書き込む
	err := parallel.ParallelizeWithThreshold(ctx, n, assignParallelThreshold, func(start, end int) error {
		for i := start; i < end; i++ {
			assign[i] = findNearestCluster(ds.Points[i].Point, centroids)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assign, nil
}

// Update は割り当てに従ってセントロイドを各クラスタの平均に更新する。
// 割り当てが0のクラスタの番号をemptyに返す。
func Update(ds *dataset.Dataset, assign []int, prev []Centroid) (next []Centroid, empty []int) {
	k := len(prev)
	xs := make([][]float64, k)
	ys := make([][]float64, k)
	for i, c := range assign {
		xs[c] = append(xs[c], ds.Points[i].X)
		ys[c] = append(ys[c], ds.Points[i].Y)
	}

	next = make([]Centroid, k)
	for c := 0; c < k; c++ {
		if len(xs[c]) == 0 {
			next[c] = prev[c]
			empty = append(empty, c)
			continue
		}
		next[c] = Centroid{X: stat.Mean(xs[c], nil), Y: stat.Mean(ys[c], nil)}
	}
	return next, empty
}

// Inertia はクラスタ内平方和（各点と割り当て先セントロイドの距離の二乗和）を計算する
func Inertia(ds *dataset.Dataset, assign []int, centroids []Centroid) float64 {
	inertia := 0.0
	for i, c := range assign {
		d := euclideanDistance(ds.Points[i].Point, centroids[c])
		inertia += d * d
	}
	return inertia
}

// findNearestCluster は最近傍クラスタを検索
func findNearestCluster(p dataset.Point, centroids []Centroid) int {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centroids {
		if dist := euclideanDistance(p, center); dist < minDist {
			minDist = dist
			nearest = c
		}
	}
	return nearest
}

// euclideanDistance はユークリッド距離を計算
func euclideanDistance(a, b dataset.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func maxShift(prev, next []Centroid) float64 {
	shift := 0.0
	for i := range prev {
		if d := euclideanDistance(prev[i], next[i]); d > shift {
			shift = d
		}
	}
	return shift
}

func cloneCentroids(c []Centroid) []Centroid {
	if c == nil {
		return nil
	}
	return append([]Centroid(nil), c...)
}
