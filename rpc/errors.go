package rpc

import (
	"errors"
	"fmt"
)

// ErrProtocol is matched by every *ProtocolError
var ErrProtocol = errors.New("rpc: protocol error")

// TransportError is returned when the request could not be delivered or the
// response did not arrive in time
type TransportError struct {
	Method string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport error calling %s: %v", e.Method, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ProtocolError is returned for a response that is not a valid reply to the
// request: bad JSON, wrong or missing id, or both/neither of result and error.
type ProtocolError struct {
	Method string
	Reason string
	Cause  error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc protocol error calling %s: %s: %v", e.Method, e.Reason, e.Cause)
	}
	return fmt.Sprintf("rpc protocol error calling %s: %s", e.Method, e.Reason)
}

func (e *ProtocolError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrProtocol, e.Cause}
	}
	return []error{ErrProtocol}
}

// RemoteError is the error object reported by the node
type RemoteError struct {
	Code    int64
	Message string
	Data    []byte // raw JSON, nil when absent
}

func (e *RemoteError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
