// Package model provides the engine state machine and the epoch token shared
// by the fitting engines and the simulator session.
package model

import (
	"fmt"
	"sync"

	"github.com/YuminosukeSato/mlsim/pkg/errors"
)

// State is the lifecycle state of an iterative engine.
type State int

const (
	// Idle means no dataset or centroids are present.
	Idle State = iota
	// Ready means a dataset and initial fit state exist and no step is running.
	Ready
	// Stepping means an iteration sequence is in progress.
	Stepping
)

// String returns the lowercase state name used in logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Stepping:
		return "stepping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateManager guards State transitions:
//
//	Idle --Prepare--> Ready --Begin--> Stepping --End--> Ready
//	any  --Reset----> Idle
type StateManager struct {
	mu    sync.RWMutex
	state State
}

// NewStateManager creates a StateManager in the Idle state.
func NewStateManager() *StateManager {
	return &StateManager{state: Idle}
}

// State returns the current state.
func (s *StateManager) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Prepare moves Idle or Ready to Ready. Preparing while Stepping fails.
func (s *StateManager) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stepping {
		return errors.NewModelError("StateManager.Prepare", "cannot prepare while stepping", errors.ErrBusy)
	}
	s.state = Ready
	return nil
}

// Begin moves Ready to Stepping.
func (s *StateManager) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Ready:
		s.state = Stepping
		return nil
	case Stepping:
		return errors.NewModelError("StateManager.Begin", "already stepping", errors.ErrBusy)
	default:
		return errors.NewModelError("StateManager.Begin", "no dataset or centroids", errors.ErrNotInitialized)
	}
}

// End moves Stepping back to Ready. It is a no-op in any other state, so a
// run that raced with Reset does not resurrect the Ready state.
func (s *StateManager) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stepping {
		s.state = Ready
	}
}

// Reset returns to Idle from any state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
}

// RequireReady returns an error unless the state is Ready.
func (s *StateManager) RequireReady() error {
	if st := s.State(); st != Ready {
		return errors.NewModelError("StateManager.RequireReady", "state is "+st.String(), errors.ErrNotInitialized)
	}
	return nil
}
