package simulator

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInvalidTransition is returned when a requested EndpointState change
// isn't reachable from the current state.
var ErrInvalidTransition = errors.New("simulator: invalid endpoint state transition")

// Endpoint is one simulated FIX-session role (entry or exit): a lifecycle
// state machine plus an atomically-guarded slot for the Session currently
// assigned to it. Unlike the teacher's generic multi-claimant Endpoint,
// there is exactly one owner at a time and no pending-claimant queue: the
// Simulator decides which Session an Endpoint gets via identity match in
// AcquireSession, never by first-come-first-served contention.
type Endpoint struct {
	ID string

	stateMu sync.Mutex
	state   EndpointState

	slot atomic.Pointer[Session]
}

// NewEndpoint builds an Endpoint in StateInit.
func NewEndpoint(id string) *Endpoint {
	return &Endpoint{ID: id, state: StateInit}
}

// State returns the endpoint's current lifecycle state.
func (e *Endpoint) State() EndpointState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

func (e *Endpoint) transition(to EndpointState) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if !canTransition(e.state, to) {
		return ErrInvalidTransition
	}
	e.state = to
	return nil
}

// Start moves the endpoint from INIT to STARTING, then to
// AWAITING_SESSION once its listener is up.
func (e *Endpoint) Start() error {
	if err := e.transition(StateStarting); err != nil {
		return err
	}
	return e.transition(StateAwaitingSession)
}

// Stop moves the endpoint to STOPPED from any state other than STOPPED;
// stopping an already-stopped endpoint returns ErrInvalidTransition.
func (e *Endpoint) Stop() error {
	return e.transition(StateStopped)
}

// Assign installs session as the endpoint's owner, moving it to
// SESSION_OWNED. A later Assign (e.g. a reconnect under the same identity)
// simply replaces the prior session.
func (e *Endpoint) Assign(session *Session) error {
	e.slot.Store(session)
	if e.State() == StateSessionOwned {
		return nil
	}
	return e.transition(StateSessionOwned)
}

// Release clears the endpoint's session slot and returns it to
// AWAITING_SESSION, as on a session disconnect.
func (e *Endpoint) Release() error {
	e.slot.Store(nil)
	if e.State() == StateStopped {
		return nil
	}
	return e.transition(StateAwaitingSession)
}

// Current returns the Session currently owning the endpoint, or nil.
func (e *Endpoint) Current() *Session {
	return e.slot.Load()
}
