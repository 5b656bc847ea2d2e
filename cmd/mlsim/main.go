// Command mlsim drives one simulator session from the command line: it
// generates a dataset, runs the model (line fit, k-means playback or boundary
// training), prints a summary and optionally saves a plot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/mlsim/config"
	"github.com/YuminosukeSato/mlsim/dataset"
	"github.com/YuminosukeSato/mlsim/internal/render"
	"github.com/YuminosukeSato/mlsim/pkg/errors"
	"github.com/YuminosukeSato/mlsim/pkg/log"
	"github.com/YuminosukeSato/mlsim/simulator"
)

type options struct {
	model         string
	seed          int64
	logLevel      string
	out           string
	showMetrics   bool
	stepInterval  time.Duration
	trainingDelay time.Duration
	cfg           config.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{cfg: config.Default()}

	fs := flag.NewFlagSet("mlsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.model, "model", "regression", "simulator: regression, clustering or svm")
	fs.Int64Var(&o.seed, "seed", -1, "random seed (negative uses the clock)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&o.out, "out", "", "save a plot of the final state (.png, .svg or .pdf)")
	fs.BoolVar(&o.showMetrics, "metrics", false, "print session counters on exit")
	fs.DurationVar(&o.stepInterval, "step-interval", simulator.DefaultStepInterval, "delay between k-means steps")
	fs.DurationVar(&o.trainingDelay, "training-delay", simulator.DefaultTrainingDelay, "simulated boundary training time")

	fs.Float64Var(&o.cfg.Regression.Slope, "slope", o.cfg.Regression.Slope, "regression: line slope [-5,5]")
	fs.Float64Var(&o.cfg.Regression.Intercept, "intercept", o.cfg.Regression.Intercept, "regression: line intercept [-10,10]")
	fs.Float64Var(&o.cfg.Regression.NoiseLevel, "noise", o.cfg.Regression.NoiseLevel, "regression: noise level [0,2]")
	fs.IntVar(&o.cfg.Regression.NumPoints, "points", o.cfg.Regression.NumPoints, "regression: number of points [10,200]")

	fs.IntVar(&o.cfg.Clustering.K, "k", o.cfg.Clustering.K, "clustering: number of clusters [2,6]")
	fs.IntVar(&o.cfg.Clustering.NumPoints, "cluster-points", o.cfg.Clustering.NumPoints, "clustering: number of points [50,200]")
	fs.IntVar(&o.cfg.Clustering.MaxIterations, "iterations", o.cfg.Clustering.MaxIterations, "clustering: iterations [5,20]")

	fs.StringVar(&o.cfg.SVM.Kernel, "kernel", o.cfg.SVM.Kernel, "svm: linear or rbf")
	fs.Float64Var(&o.cfg.SVM.C, "c", o.cfg.SVM.C, "svm: regularization C [0.1,10] (not used by the estimator)")
	fs.Float64Var(&o.cfg.SVM.Gamma, "gamma", o.cfg.SVM.Gamma, "svm: rbf gamma [0.1,5]")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "mlsim: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := log.SetupLogger(o.logLevel, stderr); err != nil {
		return err
	}
	kind, err := dataset.ParseKind(o.model)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := simulator.NewMetrics(reg)
	if err != nil {
		return err
	}

	s, err := simulator.NewSession(kind, o.cfg,
		simulator.WithSeed(o.seed),
		simulator.WithMetrics(m),
		simulator.WithStepInterval(o.stepInterval),
		simulator.WithTrainingDelay(o.trainingDelay),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := s.Generate(); err != nil {
		return err
	}
	switch kind {
	case dataset.Clustering:
		err = s.RunKMeans(ctx)
	case dataset.SVM:
		err = s.TrainBoundary(ctx)
	}
	if err != nil {
		return err
	}

	snap := s.Snapshot()
	printSummary(stdout, snap)

	if o.out != "" {
		if err := render.SaveFile(o.out, snap); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "plot written to %s\n", o.out)
	}
	if o.showMetrics {
		return printMetrics(stdout, reg)
	}
	return nil
}

func printSummary(w io.Writer, snap simulator.Snapshot) {
	fmt.Fprintf(w, "session %s (%s), %d points\n", snap.SessionID, snap.Kind, snap.Dataset.Len())

	switch snap.Kind {
	case dataset.Regression:
		fmt.Fprintf(w, "true line:   y = %.3fx + %.3f\n", snap.Dataset.Truth.Slope, snap.Dataset.Truth.Intercept)
		fmt.Fprintf(w, "your line:   y = %.3fx + %.3f\n", snap.Config.Regression.Slope, snap.Config.Regression.Intercept)
		fmt.Fprintf(w, "MSE:         %.4f\n", snap.Fit.MSE)
		if snap.Fit.R2Defined {
			fmt.Fprintf(w, "R²:          %.4f\n", snap.Fit.R2)
		} else {
			fmt.Fprintln(w, "R²:          undefined (zero variance)")
		}
	case dataset.Clustering:
		fmt.Fprintf(w, "natural clusters: %d\n", len(snap.Dataset.Truth.Centers))
		fmt.Fprintf(w, "iterations: %d, inertia: %.4f\n", snap.Iteration, snap.Inertia)
		sizes := make([]int, len(snap.Centroids))
		for _, c := range snap.Assignments {
			sizes[c]++
		}
		for i, c := range snap.Centroids {
			fmt.Fprintf(w, "  centroid %d: (%.3f, %.3f)  %d points\n", i, c.X, c.Y, sizes[i])
		}
	case dataset.SVM:
		neg, pos := snap.Dataset.ClassCounts()
		fmt.Fprintf(w, "regime: %s, class 0: %d, class 1: %d\n", snap.Dataset.Truth.Regime, neg, pos)
		fmt.Fprintf(w, "kernel: %s, boundary samples: %d\n", snap.Config.SVM.Kernel, snap.Boundary.Len())
		fmt.Fprintf(w, "accuracy (x+y>10 rule): %.1f%%\n", snap.Accuracy*100)
	}
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), c.GetValue())
			}
			if h := metric.GetHistogram(); h != nil {
				fmt.Fprintf(w, "%s count=%d sum=%.3fs\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
