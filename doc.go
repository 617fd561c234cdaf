// Package grpccall provides the write path and lifecycle machinery for
// a single bidirectional streaming gRPC call.
//
// The underlying transport permits at most one write operation in
// flight on a stream at a time. BufferedWriter enforces that discipline
// in one place: producers enqueue writes and move on, and the writer
// starts each operation only after the completion of the previous one
// has been processed, preserving submission order and never dropping or
// duplicating a write.
//
// ClientCall ties a generated bidirectional client stream to a
// BufferedWriter and a per-call dispatch context, delivering received
// messages and the call's terminal status to a StreamObserver. A call
// ends in one of two ways: Finish, which tears the call down without
// notifying the observer, and FinishWithError, which notifies the
// observer with the given status.
package grpccall
