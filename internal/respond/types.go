// Package respond is the responder state machine: it joins the mDNS
// sockets, matches inbound queries against the service registry, emits
// responses and announcements, and drains on command.
package respond

// State is a lifecycle state of a Machine.
type State int

const (
	// StateIdle is the state before Run has been called.
	StateIdle State = iota
	// StateRunning is the normal operating state: the event loop is
	// processing inbound datagrams and commands.
	StateRunning
	// StateDraining is entered once a shutdown has been requested; the
	// event loop is tearing down its sockets and goroutines.
	StateDraining
	// StateTerminated is the final state. No further commands are
	// processed once reached.
	StateTerminated
)

// String returns a short label for the state, used in log fields.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
