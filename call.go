package grpccall

import (
	"google.golang.org/grpc/status"
)

// Call is the terminal surface of a single streaming call. Exactly one
// of the two methods is expected to be invoked over a call's lifetime;
// ClientCall tolerates extra invocations by ignoring them.
type Call interface {
	// Finish ends the call gracefully. It does not produce a
	// notification to the call's observer: the party finishing the call
	// already knows the outcome.
	Finish()

	// FinishWithError ends the call and notifies the observer with the
	// given status, so that upstream state machines can react to the
	// failure. The status is passed through unmodified.
	FinishWithError(st *status.Status)
}

// StreamObserver receives the asynchronous events of a ClientCall. All
// callbacks are delivered on the call's dispatch context, one at a
// time, never concurrently. Blocking in a callback stalls the call.
type StreamObserver[R any] interface {
	// OnStreamStart is invoked once, before any other callback.
	OnStreamStart()

	// OnStreamRead is invoked for each message received from the
	// server, in arrival order.
	OnStreamRead(msg R)

	// OnStreamFinish is invoked at most once, when the call ends with
	// an error finish or when the server ends the stream. An OK status
	// means the server ended the stream normally. A graceful local
	// Finish does not produce this callback.
	OnStreamFinish(st *status.Status)
}
