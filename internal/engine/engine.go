// Package engine defines the contract with the external analysis engine
// process. The engine itself is opaque; it signals readiness or failure
// through fixed markers on its output streams and reports its observations
// straight to the backend.
package engine

// Event is a normalized engine lifecycle signal.
type Event int

const (
	// EventReady fires once, on the first readiness marker seen on stdout.
	EventReady Event = iota
	// EventFailed fires on the failure marker, only if readiness never fired.
	EventFailed
	// EventStopped fires when the process exits, for any reason.
	EventStopped
)

func (e Event) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventFailed:
		return "failed"
	case EventStopped:
		return "stopped"
	}
	return "unknown"
}

// Supervisor owns zero or one engine process. Start while a process is alive
// terminates it before spawning the replacement; Stop escalates to a forced
// tree-wide kill when the graceful path does not finish in time.
type Supervisor interface {
	Start(sessionID, token string) error
	Stop()
	RegisterEventHandler(fn func(Event))
}

// Indicator is the session-visible marker opened when the engine becomes
// ready and closed before the stopped event is forwarded, so observers never
// see a stopped engine with a live indicator.
type Indicator interface {
	Open(sessionID string)
	Close()
}
