// Package control implements the Control Surface (spec §5): pause/resume,
// a step-limit gate, and a small REST adapter around both.
package control

import "sync"

// Surface holds the pause flag and step counter the FSM checks at every
// transition boundary. The single-threaded scheduling model (spec §5)
// means the FSM itself never needs to lock these fields, but the REST
// adapter runs its handlers on gin's own goroutines, so Surface guards
// its state with a mutex regardless.
type Surface struct {
	mu          sync.Mutex
	paused      bool
	maxSteps    int
	stepCounter int
}

// NewSurface returns a Surface with the given default step limit (0 means
// unbounded).
func NewSurface(defaultMaxSteps int) *Surface {
	return &Surface{maxSteps: defaultMaxSteps}
}

// Pause sets the pause flag; the engine parks on its current state at the
// next transition boundary.
func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume clears the pause flag so the engine re-enters the current
// state's effect.
func (s *Surface) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// IsPaused reports the current pause flag.
func (s *Surface) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetMaxSteps changes the step limit (0 disables the gate).
func (s *Surface) SetMaxSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSteps = n
}

// MaxSteps returns the current step limit.
func (s *Surface) MaxSteps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSteps
}

// StepCounter returns the number of actions executed since the last reset.
func (s *Surface) StepCounter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCounter
}

// ResetStepCounter zeroes the step counter.
func (s *Surface) ResetStepCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCounter = 0
}

// IncrementStep bumps the step counter on entry to ACTION_RUNNING (spec
// §5) and returns the new value.
func (s *Surface) IncrementStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCounter++
	return s.stepCounter
}

// ShouldPause reports whether the engine must park before running the
// next effect: either the pause flag is set, or a non-zero step limit has
// been reached (spec §5 P9).
func (s *Surface) ShouldPause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return true
	}
	return s.maxSteps > 0 && s.stepCounter >= s.maxSteps
}
