package simulator

// Topology describes how the entry and exit endpoints share listen ports,
// per spec §4.9.
type Topology int

const (
	// DualPort runs entry and exit on independent ports: two runtime
	// listeners, each acquiring exactly one session.
	DualPort Topology = iota
	// SinglePort runs both roles over one shared port: the first
	// acquired session matching the entry identity becomes the entry
	// session, the next matching the exit identity becomes the exit
	// session, and anything matching neither is observed-only.
	SinglePort
)

func (t Topology) String() string {
	if t == SinglePort {
		return "SINGLE_PORT"
	}
	return "DUAL_PORT"
}

// topologyFor derives the Topology implied by the entry and exit listen
// ports; it's diagnostic only (reported for logging), since AcquireSession
// always dispatches by CompID identity regardless of which topology
// produced the connection.
func topologyFor(entryPort, exitPort int) Topology {
	if entryPort == exitPort {
		return SinglePort
	}
	return DualPort
}
