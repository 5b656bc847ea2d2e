// Package mlsim provides the numeric core of a set of interactive toy
// machine-learning simulators: linear regression, k-means clustering and an
// SVM-like decision boundary over 2-D synthetic data.
//
// The simulators are visual teaching aids, not learners. The regression
// simulator scores a line the user picks, k-means runs a fixed number of
// Lloyd iterations paced for playback, and the SVM simulator draws a
// heuristic boundary instead of solving the margin problem.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/mlsim/config"
//	    "github.com/YuminosukeSato/mlsim/dataset"
//	    "github.com/YuminosukeSato/mlsim/simulator"
//	)
//
//	func main() {
//	    s, err := simulator.NewSession(dataset.Clustering, config.Default(),
//	        simulator.WithSeed(42),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if _, err := s.Generate(); err != nil {
//	        log.Fatal(err)
//	    }
//	    // one step immediately, then one every 500ms
//	    if err := s.RunKMeans(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    snap := s.Snapshot()
//	    fmt.Println("inertia:", snap.Inertia)
//	}
//
// # Packages
//
//   - dataset: point types and the per-simulator random generators
//   - metrics: MSE, R², the predicted line and accuracy
//   - cluster: the k-means engine (Initialize, Step, Run)
//   - svm: boundary estimation with a linear or RBF kernel
//   - config: hyperparameter defaults and accepted ranges
//   - simulator: the Session that owns state, pacing and cancellation
//   - core/model: engine state machine and epoch token
//   - core/parallel: range-chunked parallel loops
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Cancellation
//
// Playback and training are deferred work. Each Session keeps an epoch
// counter; Generate and Reset advance it, and any deferred step or training
// result issued under an older epoch is discarded instead of applied.
//
// # Command line
//
//	go run ./cmd/mlsim -model svm -kernel rbf -gamma 2 -out boundary.png
package mlsim
