package hedgedoc

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is matched by every *TimeoutError
	ErrTimeout = errors.New("timeout waiting for document snapshot")
	// ErrServerRejected is matched by every *ServerRejectedError
	ErrServerRejected = errors.New("server rejected request")
	// ErrInvalidMode is returned when a mutation mode is neither override nor append
	ErrInvalidMode = errors.New("invalid mutation mode")
	// ErrEmptyNoteID is returned when no note id is given
	ErrEmptyNoteID = errors.New("note id cannot be empty")
)

// AuthError is returned when the anonymous session bootstrap fails
type AuthError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch session from %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch session from %s: %s", e.URL, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectionError wraps a transport level failure
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("websocket %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError is returned when no usable snapshot arrives before the deadline
type TimeoutError struct {
	NoteID string
	State  ConnState
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s (note %s, state %s)", ErrTimeout.Error(), e.NoteID, e.State)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ServerRejectedError carries the payload of an "error" event
type ServerRejectedError struct {
	Message string
}

func (e *ServerRejectedError) Error() string {
	return "server error: " + e.Message
}

func (e *ServerRejectedError) Is(target error) bool { return target == ErrServerRejected }

// DecodeError reports a malformed event frame. It is logged and dropped by the connection.
type DecodeError struct {
	Frame  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed event frame %q: %s", truncate(e.Frame, 64), e.Reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
