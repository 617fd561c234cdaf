package grpccall

import "container/list"

// BufferedWriter sequences write operations onto a stream that permits
// at most one write in flight at a time. When the writer is idle, an
// enqueued operation starts immediately; otherwise it is appended to a
// FIFO buffer and started only after the completions of all operations
// ahead of it have been processed. Each operation is started exactly
// once, and none is ever skipped. The buffer has no capacity bound;
// backpressure, if desired, is the producer's responsibility.
//
// BufferedWriter does no locking. It must be invoked only from the
// call's serial dispatch context; producers running elsewhere must
// marshal onto that context first (ClientCall.Write does exactly that).
//
// The zero value is an idle writer, ready for use.
type BufferedWriter struct {
	pending list.List
	busy    bool
}

// EnqueueWrite submits op. If no write is currently in flight, op is
// started synchronously before EnqueueWrite returns; otherwise it is
// buffered behind the writes already submitted. The writer does not
// reference op after starting it.
func (w *BufferedWriter) EnqueueWrite(op Operation) {
	if w.busy {
		w.pending.PushBack(op)
		return
	}
	w.busy = true
	op.Start()
}

// DequeueNextWrite advances the queue after the in-flight write's
// completion has been processed: it starts the next buffered operation,
// or marks the writer idle if there is none. Calling it with nothing in
// flight and nothing buffered is a no-op, so a spurious completion
// racing with teardown is harmless.
func (w *BufferedWriter) DequeueNextWrite() {
	front := w.pending.Front()
	if front == nil {
		w.busy = false
		return
	}
	w.pending.Remove(front)
	front.Value.(Operation).Start()
}
