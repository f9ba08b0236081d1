package logbook

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// Scope ties a Logbook to a block of work. Release is the only automatic
// lifecycle transition: it marks the run failed if the work returned an
// error, complete if the run has not reached a terminal state yet, and then
// closes the log.
//
//	s, err := logbook.Acquire("run1", cfg)
//	if err != nil { ... }
//	defer func() { err = s.Release(err) }()
type Scope struct {
	lb       *Logbook
	released bool
}

// Acquire creates a Logbook wrapped in a Scope.
func Acquire(runID string, cfg Config) (*Scope, error) {
	lb, err := New(runID, cfg)
	if err != nil {
		return nil, err
	}
	return &Scope{lb: lb}, nil
}

// Logbook returns the scoped logbook.
func (s *Scope) Logbook() *Logbook { return s.lb }

// Release finalizes the run according to cause and closes the log handle.
// It returns cause joined with any finalization error. Calls after the first
// return cause unchanged.
func (s *Scope) Release(cause error) error {
	if s.released {
		return cause
	}
	s.released = true

	var finalErr error
	switch {
	case cause != nil:
		finalErr = s.lb.MarkFailed(cause.Error())
	case !types.IsTerminal(s.lb.CurrentStatus()):
		finalErr = s.lb.MarkComplete()
	}
	closeErr := s.lb.Close()
	if finalErr == nil && closeErr == nil {
		return cause
	}
	return errors.Join(cause, finalErr, closeErr)
}

// With runs fn inside a Scope. A panic in fn marks the run failed with the
// panic value before propagating.
func With(runID string, cfg Config, fn func(*Logbook) error) (err error) {
	s, err := Acquire(runID, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = s.Release(fmt.Errorf("%v", r))
			panic(r)
		}
	}()
	return s.Release(fn(s.lb))
}
