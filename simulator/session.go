// Package simulator owns the mutable state of one interactive simulator:
// the dataset, the fit state and the timed k-means playback or boundary
// training.
//
// Every mutation happens under the session mutex. Deferred work captures the
// session epoch when it is issued and drops its result if Generate or Reset
// advanced the epoch in the meantime.
package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/YuminosukeSato/mlsim/cluster"
	"github.com/YuminosukeSato/mlsim/config"
	"github.com/YuminosukeSato/mlsim/core/model"
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/metrics"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/pkg/log"
	"github.com/YuminosukeSato/mlsim/svm"
)

// Default pacing of deferred work.
const (
	DefaultStepInterval  = 500 * time.Millisecond
	DefaultTrainingDelay = 500 * time.Millisecond
)

// Session is one simulator instance. It is safe for concurrent use.
type Session struct {
	id   string
	kind dataset.Kind
	seed int64

	stepInterval  time.Duration
	trainingDelay time.Duration

	mu          sync.Mutex
	cfg         config.Config
	rng         *rand.Rand
	ds          *dataset.Dataset
	kmeans      *cluster.KMeans
	centroids   []cluster.Centroid
	assignments []int
	iteration   int
	inertia     float64
	history     []float64
	boundary    *svm.Boundary
	accuracy    float64
	trained     bool
	r2Warned    bool
	busy        bool
	cancel      context.CancelFunc

	epoch   model.Epoch
	metrics *Metrics
	logger  log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithSeed seeds the session random source. Negative seeds use the clock.
func WithSeed(seed int64) Option {
	return func(s *Session) { s.seed = seed }
}

// WithLogger sets the base logger; the session adds its id and kind.
func WithLogger(l log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records session activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithStepInterval sets the delay between k-means playback steps.
func WithStepInterval(d time.Duration) Option {
	return func(s *Session) { s.stepInterval = d }
}

// WithTrainingDelay sets the simulated training time before a boundary is
// estimated.
func WithTrainingDelay(d time.Duration) Option {
	return func(s *Session) { s.trainingDelay = d }
}

// NewSession creates an idle session for kind. cfg is validated for kind.
func NewSession(kind dataset.Kind, cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(kind); err != nil {
		return nil, err
	}

	s := &Session{
		id:            uuid.NewString(),
		kind:          kind,
		seed:          -1,
		stepInterval:  DefaultStepInterval,
		trainingDelay: DefaultTrainingDelay,
		cfg:           cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stepInterval < 0 || s.trainingDelay < 0 {
		return nil, errors.NewValidationError("delay", "must be non-negative", s.stepInterval)
	}

	s.rng = dataset.NewSource(s.seed)
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("simulator")
	}
	s.logger = s.logger.With(log.SessionIDKey, s.id, log.ModelKindKey, kind.String())

	s.logger.Debug("session created", log.RandomSeedKey, s.seed)
	return s, nil
}

// ID returns the session UUID.
func (s *Session) ID() string { return s.id }

// Kind returns the simulator kind.
func (s *Session) Kind() dataset.Kind { return s.kind }

// Config returns the current configuration.
func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Epoch returns the current epoch token.
func (s *Session) Epoch() model.Token {
	return s.epoch.Current()
}

// State reports the engine state: Idle without a dataset, Stepping while a
// playback or training is pending, Ready otherwise.
func (s *Session) State() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() model.State {
	switch {
	case s.ds == nil:
		return model.Idle
	case s.busy:
		return model.Stepping
	default:
		return model.Ready
	}
}

// Generate draws a new dataset, invalidating any pending playback or
// training. Clustering sessions also get fresh centroids.
func (s *Session) Generate() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.invalidateLocked()

	ds, err := dataset.Generate(s.kind, s.cfg.GeneratorParams(s.kind), s.rng)
	if err != nil {
		return nil, err
	}
	s.clearFitLocked()
	s.ds = ds

	if s.kind == dataset.Clustering {
		if err := s.initCentroidsLocked(); err != nil {
			return nil, err
		}
	}

	s.metrics.incGenerations(s.kind)
	fields := []any{log.OperationKey, log.OperationGenerate, log.EpochKey, uint64(tok), log.SamplesKey, ds.Len()}
	if s.kind == dataset.SVM {
		fields = append(fields, log.RegimeKey, ds.Truth.Regime.String())
	}
	s.logger.Info("dataset generated", fields...)
	return ds.Clone(), nil
}

// Reset invalidates pending work, drops the dataset and fit state, and
// restores the default configuration. The SVM kernel choice is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.invalidateLocked()
	kernel := s.cfg.SVM.Kernel
	s.cfg = config.Default()
	s.cfg.SVM.Kernel = kernel
	s.ds = nil
	s.clearFitLocked()

	s.logger.Info("session reset", log.OperationKey, log.OperationReset, log.EpochKey, uint64(tok))
}

// SetConfig replaces the configuration. For a clustering session with data,
// a change of k or of the iteration budget discards the current run and
// re-initializes the centroids. Regression line parameters take effect on the
// next LinearFit; point counts and noise on the next Generate.
func (s *Session) SetConfig(cfg config.Config) error {
	if err := cfg.Validate(s.kind); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg.Clustering
	s.cfg = cfg
	if s.kind != dataset.Clustering || s.ds == nil {
		return nil
	}
	if prev.K == cfg.Clustering.K && prev.MaxIterations == cfg.Clustering.MaxIterations {
		return nil
	}

	s.invalidateLocked()
	s.clearFitLocked()
	return s.initCentroidsLocked()
}

// LinearFit evaluates the configured line against the current dataset.
// It is recomputed on every call.
func (s *Session) LinearFit() (metrics.FitMetrics, error) {
	if s.kind != dataset.Regression {
		return metrics.FitMetrics{}, errors.NewModelError("Session.LinearFit", "not a regression session", nil)
	}

	s.mu.Lock()
	fit := s.linearFitLocked()
	s.mu.Unlock()

	s.logger.Debug("linear fit evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.MSEKey, fit.MSE,
		log.R2ScoreKey, fit.R2,
	)
	return fit, nil
}

// RunKMeans plays the k-means iterations back: the first step applies
// immediately, then one step per step interval until the iteration budget
// is spent. It blocks until the playback ends.
//
// A Generate or Reset during playback stops it and RunKMeans returns an
// error wrapping errors.ErrStaleEpoch; no further step touches the session.
// Starting a playback while another playback or training is pending returns
// errors.ErrBusy. Without data it returns immediately.
func (s *Session) RunKMeans(ctx context.Context) error {
	if s.kind != dataset.Clustering {
		return errors.NewModelError("Session.RunKMeans", "not a clustering session", nil)
	}

	s.mu.Lock()
	if s.ds.Len() == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.busy {
		s.mu.Unlock()
		return errors.NewModelError("Session.RunKMeans", "playback or training pending", errors.ErrBusy)
	}
	tok, runCtx := s.beginLocked(ctx)
	km, ds := s.kmeans, s.ds
	s.mu.Unlock()

	logger := s.logger.With(log.EpochKey, uint64(tok))
	logger.Info("k-means playback started",
		log.OperationKey, log.OperationRun,
		log.ClustersKey, km.NClusters(),
		log.MaxIterationsKey, km.MaxIter(),
	)

	start := time.Now()
	limiter := newLimiter(s.stepInterval)
	_, err := km.Run(runCtx, ds, func(ev cluster.StepEvent) error {
		// 最初のステップはバーストで即時
		if err := limiter.Wait(runCtx); err != nil {
			return err
		}
		return s.applyStep(tok, ev)
	})

	err = s.finish(tok, "Session.RunKMeans", err)
	s.metrics.observeRun(s.kind, time.Since(start), err)
	if err != nil {
		logger.Warn("k-means playback stopped", err)
		return err
	}
	logger.Info("k-means playback finished",
		log.IterationKey, km.NIterations(),
		log.InertiaKey, km.Inertia(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Session) applyStep(tok model.Token, ev cluster.StepEvent) error {
	return errors.SafeExecute("Session.applyStep", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.epoch.Valid(tok) {
			return errors.ErrStaleEpoch
		}
		s.centroids = ev.Centroids
		s.assignments = ev.Assignments
		s.iteration = ev.Iteration
		s.inertia = ev.Inertia
		s.history = append(s.history, ev.Inertia)
		s.metrics.incKMeansSteps(s.kind)

		s.logger.Debug("k-means step applied",
			log.OperationKey, log.OperationStep,
			log.EpochKey, uint64(tok),
			log.IterationKey, ev.Iteration,
			log.InertiaKey, ev.Inertia,
		)
		return nil
	})
}

// TrainBoundary waits the training delay and then estimates the decision
// boundary with the configured kernel. The reported accuracy is the
// placeholder metrics.ThresholdAccuracy. Cancellation and busy semantics
// match RunKMeans. Without data it returns immediately.
func (s *Session) TrainBoundary(ctx context.Context) error {
	if s.kind != dataset.SVM {
		return errors.NewModelError("Session.TrainBoundary", "not an svm session", nil)
	}

	s.mu.Lock()
	if s.ds.Len() == 0 {
		s.mu.Unlock()
		return nil
	}
	if s.busy {
		s.mu.Unlock()
		return errors.NewModelError("Session.TrainBoundary", "playback or training pending", errors.ErrBusy)
	}
	kernel, err := svm.ParseKernel(s.cfg.SVM.Kernel)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	est := svm.NewBoundaryEstimator(
		svm.WithKernel(kernel),
		svm.WithGamma(s.cfg.SVM.Gamma),
		svm.WithC(s.cfg.SVM.C),
		svm.WithLogger(s.logger),
	)
	gamma := s.cfg.SVM.Gamma
	tok, runCtx := s.beginLocked(ctx)
	s.boundary = nil
	s.trained = false
	s.accuracy = 0
	ds := s.ds
	s.mu.Unlock()

	logger := s.logger.With(log.EpochKey, uint64(tok))
	logger.Info("boundary training started",
		log.OperationKey, log.OperationTrain,
		log.KernelKey, kernel.String(),
		log.GammaKey, gamma,
	)

	start := time.Now()
	err = s.train(runCtx, tok, est, ds)
	err = s.finish(tok, "Session.TrainBoundary", err)
	s.metrics.observeRun(s.kind, time.Since(start), err)
	if err != nil {
		logger.Warn("boundary training stopped", err)
		return err
	}
	return nil
}

func (s *Session) train(ctx context.Context, tok model.Token, est *svm.BoundaryEstimator, ds *dataset.Dataset) error {
	if s.trainingDelay > 0 {
		timer := time.NewTimer(s.trainingDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	b, err := est.Estimate(ctx, ds)
	if err != nil {
		return err
	}
	acc := metrics.ThresholdAccuracy(ds)

	return errors.SafeExecute("Session.applyBoundary", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.epoch.Valid(tok) {
			return errors.ErrStaleEpoch
		}
		s.boundary = b
		s.accuracy = acc
		s.trained = true
		s.metrics.incTrainingRuns(s.kind)

		s.logger.Info("boundary trained",
			log.EpochKey, uint64(tok),
			log.BoundaryPointsKey, b.Len(),
			log.AccuracyKey, acc,
		)
		return nil
	})
}

// beginLocked marks the session busy and derives a context that
// invalidateLocked cancels.
func (s *Session) beginLocked(ctx context.Context) (model.Token, context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	return s.epoch.Current(), runCtx
}

// finish releases the busy flag if the work still belongs to the current
// epoch and maps the outcome of invalidated work to ErrStaleEpoch.
func (s *Session) finish(tok model.Token, op string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch.Valid(tok) {
		s.busy = false
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		if err != nil {
			return errors.Wrap(err, op)
		}
		return nil
	}

	if err != nil {
		s.metrics.incStale(s.kind)
		return errors.NewModelError(op, "invalidated by a newer epoch", errors.ErrStaleEpoch)
	}
	return nil
}

// invalidateLocked advances the epoch and cancels pending work.
func (s *Session) invalidateLocked() model.Token {
	tok := s.epoch.Advance()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.busy = false
	return tok
}

// linearFitLocked evaluates the configured line. An undefined R² is warned
// about once per dataset.
func (s *Session) linearFitLocked() metrics.FitMetrics {
	if s.ds == nil {
		return metrics.FitMetrics{}
	}
	cfg := s.cfg.Regression
	fit := metrics.EvaluateLinearFit(s.ds, cfg.Slope, cfg.Intercept)
	if fit.N > 0 && !fit.R2Defined && !s.r2Warned {
		s.r2Warned = true
		errors.Warn(errors.NewUndefinedMetricWarning("r2", "zero variance in target", 0))
	}
	return fit
}

func (s *Session) clearFitLocked() {
	s.r2Warned = false
	s.kmeans = nil
	s.centroids = nil
	s.assignments = nil
	s.iteration = 0
	s.inertia = 0
	s.history = nil
	s.boundary = nil
	s.accuracy = 0
	s.trained = false
}

func (s *Session) initCentroidsLocked() error {
	s.kmeans = cluster.NewKMeans(
		cluster.WithNClusters(s.cfg.Clustering.K),
		cluster.WithMaxIter(s.cfg.Clustering.MaxIterations),
		cluster.WithRand(s.rng),
		cluster.WithLogger(s.logger),
	)
	centroids, err := s.kmeans.Initialize(s.ds)
	if err != nil {
		return err
	}
	s.centroids = centroids
	return nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
