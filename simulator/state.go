// Package simulator implements the embedded FIX counterparty: a routing
// engine that accepts one or two transport connections per endpoint,
// assigns an owning session, and runs inbound/outbound traffic through the
// mutation pipeline, per spec §4.9.
package simulator

// EndpointState is the lifecycle of one simulated endpoint.
type EndpointState int32

const (
	StateInit EndpointState = iota
	StateStarting
	StateAwaitingSession
	StateSessionOwned
	StateStopped
)

func (s EndpointState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStarting:
		return "STARTING"
	case StateAwaitingSession:
		return "AWAITING_SESSION"
	case StateSessionOwned:
		return "SESSION_OWNED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// validTransitions enumerates the allowed EndpointState transitions;
// anything not listed here is rejected by Endpoint.transition.
var validTransitions = map[EndpointState][]EndpointState{
	StateInit:            {StateStarting, StateStopped},
	StateStarting:        {StateAwaitingSession, StateStopped},
	StateAwaitingSession: {StateSessionOwned, StateStopped},
	StateSessionOwned:    {StateAwaitingSession, StateStopped},
	StateStopped:         {},
}

func canTransition(from, to EndpointState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
