package engine

import (
	"errors"
	"sync"
)

// State of a tracked request.
type State int

const (
	Idle State = iota
	InFlight
	Resolved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

var ErrInFlight = errors.New("engine: request already in flight")

// Operation tracks a single outstanding request per workflow. It
// replaces the ambiguous boolean loading flag with explicit states:
// Idle -> InFlight -> Resolved (value or error) -> Idle.
type Operation struct {
	mu    sync.Mutex
	state State
	err   error
}

// Start moves the operation to InFlight. Only one request may be
// outstanding at a time.
func (o *Operation) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == InFlight {
		return ErrInFlight
	}
	o.state = InFlight
	o.err = nil
	return nil
}

// Resolve settles the outstanding request with its final error, if any.
func (o *Operation) Resolve(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Resolved
	o.err = err
}

// Reset returns the operation to Idle, discarding the settled result.
func (o *Operation) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.err = nil
}

func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
