package rpc

import "time"

// CallState is the progress of a single call.
//
//	Idle -> Sending -> AwaitingResponse -> Completed
//	  any state before Completed        -> Failed
type CallState uint8

const (
	StateIdle CallState = iota
	StateSending
	StateAwaitingResponse
	StateCompleted
	StateFailed
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s
func (s CallState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CallEvent describes one state transition
type CallEvent struct {
	ID      uint64
	Method  string
	From    CallState
	To      CallState
	Elapsed time.Duration // since the call entered Idle
	Err     error         // set on Failed
}

// Observer receives every transition of every call. It is invoked
// synchronously on the calling goroutine and must not block.
type Observer interface {
	ObserveCall(CallEvent)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(CallEvent)

func (f ObserverFunc) ObserveCall(e CallEvent) { f(e) }
