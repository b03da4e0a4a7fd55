package emulator

import "errors"

// State is the lifecycle phase of a Server. Transitions are monotonic except
// that a failed start moves straight from StateStarting to StateStopped.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyStarted is returned by Start when the server was started before.
	ErrAlreadyStarted = errors.New("emulator: server already started")

	// ErrNotRunning is returned by operations that require a running server.
	ErrNotRunning = errors.New("emulator: server is not running")

	// ErrDisposed is returned by any operation on a closed server.
	ErrDisposed = errors.New("emulator: server is disposed")

	// ErrProtocol marks internal-consistency failures in the runtime API
	// exchange. It is always fatal for the processing loop.
	ErrProtocol = errors.New("emulator: runtime api protocol violation")
)
