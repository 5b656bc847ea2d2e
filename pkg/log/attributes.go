// Standard attribute keys for simulator logging.
//
// Keys follow a dotted naming convention ("session.id", "data.samples") so
// log pipelines can filter by prefix.

package log

// Session and operation context.
const (
	// SessionIDKey identifies a simulator session (UUID string).
	SessionIDKey = "session.id"

	// ModelKindKey is the simulator kind: "regression", "clustering", "svm".
	ModelKindKey = "model.kind"

	// ComponentKey identifies which package is logging.
	// Examples: "dataset", "cluster.kmeans", "svm.boundary"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// EpochKey records the session epoch a piece of work was issued under.
	EpochKey = "session.epoch"

	// StateKey records the engine state (idle, ready, stepping).
	StateKey = "engine.state"
)

// Data shape.
const (
	// SamplesKey indicates the number of points in the dataset.
	SamplesKey = "data.samples"

	// ClustersKey is the number of centroids k.
	ClustersKey = "data.clusters"

	// RegimeKey is the separation regime drawn for an SVM dataset.
	RegimeKey = "data.regime"

	// BoundaryPointsKey is the size of an estimated boundary sample.
	BoundaryPointsKey = "data.boundary_points"
)

// Metrics and progress.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// IterationKey records the current iteration number of a k-means run.
	IterationKey = "training.iteration"

	// MaxIterationsKey records the iteration budget of a k-means run.
	MaxIterationsKey = "training.max_iterations"

	// InertiaKey records the within-cluster sum of squares.
	InertiaKey = "metrics.inertia"

	// MSEKey records mean squared error of a linear fit.
	MSEKey = "metrics.mse"

	// R2ScoreKey records the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"
)

// Hyperparameters.
const (
	KernelKey     = "hyperparams.kernel"
	GammaKey      = "hyperparams.gamma"
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
)

// Standard operation names.
const (
	OperationGenerate   = "generate"
	OperationInitialize = "initialize"
	OperationStep       = "step"
	OperationRun        = "run"
	OperationTrain      = "train"
	OperationEvaluate   = "evaluate"
	OperationReset      = "reset"
)
