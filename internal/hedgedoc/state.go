package hedgedoc

// ConnState is the lifecycle state of a realtime connection
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateHandshaking
	StateJoined
	StateOperationSent
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateJoined:
		return "joined"
	case StateOperationSent:
		return "operationSent"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
