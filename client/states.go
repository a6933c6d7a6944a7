package client

// State is the connection state of the client
type State uint64

const (
	// StateIdle means there is no connection and nothing scheduled,
	// either before the first Connect, after Disconnect or once retries are exhausted
	StateIdle State = iota + 1

	// StateConnecting means the handshake is in progress
	StateConnecting

	// StateConnected means the connection is open
	StateConnected

	// StateReconnectScheduled means a timer will call Connect again
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnectScheduled:
		return "ReconnectScheduled"
	default:
		return "Unknown"
	}
}

func (s State) IsConnected() bool {
	return s == StateConnected
}
