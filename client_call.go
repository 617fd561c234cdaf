package grpccall

import (
	"errors"
	"io"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
)

var (
	errCallFinished = errors.New("call is finished")
	errHalfClosed   = errors.New("already half-closed")
)

// BidiStream is the subset of a generated bidirectional client stream
// that ClientCall uses. Stream values returned by generated stub
// methods satisfy it.
type BidiStream[Q, R proto.Message] interface {
	Send(Q) error
	Recv() (R, error)
	CloseSend() error
}

// ClientCall owns the write path and lifecycle of one bidirectional
// streaming call. It adapts the stream's blocking Send and Recv into
// asynchronous operations whose completions are delivered one at a time
// on a per-call dispatch context; the BufferedWriter it owns is only
// ever touched from that context, which is what lets the writer go
// without locks.
//
// At most one send and one receive are in flight at any instant. A
// failed send finishes the call with the send's status, except when the
// failure is io.EOF, in which case the receive path is left to surface
// the call's real terminal status.
type ClientCall[Q, R proto.Message] struct {
	stream   BidiStream[Q, R]
	tearDown func()
	observer StreamObserver[R]
	writer   BufferedWriter

	dispatch chan func()
	done     chan struct{}

	mu         sync.Mutex
	halfClosed bool
	finished   bool
	status     *status.Status
}

var _ Call = (*ClientCall[*emptypb.Empty, *emptypb.Empty])(nil)

// NewClientCall wraps stream in a call object and starts its dispatch
// context and read loop. tearDown is invoked when the call finishes and
// should cancel the context the stream was created with. The observer's
// OnStreamStart is delivered before any other callback.
func NewClientCall[Q, R proto.Message](stream BidiStream[Q, R], tearDown func(), observer StreamObserver[R]) *ClientCall[Q, R] {
	c := &ClientCall[Q, R]{
		stream:   stream,
		tearDown: tearDown,
		observer: observer,
		dispatch: make(chan func(), 16),
		done:     make(chan struct{}),
	}
	go c.run()
	c.do(func() {
		c.observer.OnStreamStart()
		c.startRead()
	})
	return c
}

// run is the call's serial dispatch context: every completion and every
// enqueue is processed here, one at a time.
func (c *ClientCall[Q, R]) run() {
	for {
		// If the call is finished, don't let queued events race the
		// teardown.
		select {
		case <-c.done:
			return
		default:
		}
		select {
		case fn := <-c.dispatch:
			fn()
		case <-c.done:
			return
		}
	}
}

// do marshals fn onto the dispatch context. Events posted after the
// call has finished are dropped; that is how spurious completions
// racing with teardown are tolerated.
func (c *ClientCall[Q, R]) do(fn func()) {
	select {
	case c.dispatch <- fn:
	case <-c.done:
	}
}

// Write submits msg to be sent on the stream. It may be called from any
// goroutine: the enqueue itself is marshalled onto the dispatch
// context, where the BufferedWriter either starts the send immediately
// or buffers it behind the sends already submitted. Write returns as
// soon as the message is queued; a failed send is reported through the
// observer, not here.
func (c *ClientCall[Q, R]) Write(msg Q) error {
	if err := c.writable(); err != nil {
		return err
	}
	c.do(func() {
		c.writer.EnqueueWrite(&writeOperation[Q, R]{call: c, msg: msg})
	})
	return nil
}

// CloseSend half-closes the send side of the call. The half-close is
// sequenced through the same write queue, so it cannot overtake writes
// that are still buffered.
func (c *ClientCall[Q, R]) CloseSend() error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return errCallFinished
	}
	if c.halfClosed {
		c.mu.Unlock()
		return errHalfClosed
	}
	c.halfClosed = true
	c.mu.Unlock()
	c.do(func() {
		c.writer.EnqueueWrite(&closeSendOperation[Q, R]{call: c})
	})
	return nil
}

func (c *ClientCall[Q, R]) writable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return errCallFinished
	}
	if c.halfClosed {
		return errHalfClosed
	}
	return nil
}

// Finish ends the call gracefully, without notifying the observer.
func (c *ClientCall[Q, R]) Finish() {
	c.finish(nil, false)
}

// FinishWithError ends the call and delivers st to the observer's
// OnStreamFinish.
func (c *ClientCall[Q, R]) FinishWithError(st *status.Status) {
	if st == nil {
		st = status.New(codes.Unknown, "call finished with unspecified error")
	}
	c.finish(st, false)
}

// Done returns a channel that is closed once the call has finished.
func (c *ClientCall[Q, R]) Done() <-chan struct{} {
	return c.done
}

// IsDone returns true once the call has finished.
func (c *ClientCall[Q, R]) IsDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Err returns the error the call finished with, or nil if the call
// finished gracefully, ended with an OK status, or has not finished.
func (c *ClientCall[Q, R]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil
	}
	return c.status.Err()
}

// finish tears the call down once; later invocations are no-ops. A nil
// status means a graceful finish and produces no observer callback.
// Completions and the lifecycle methods can race, so callers already on
// the dispatch context terminate directly while external callers
// marshal the teardown onto it, keeping it ordered after any callback
// still in the queue.
func (c *ClientCall[Q, R]) finish(st *status.Status, onDispatch bool) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	c.status = st
	c.mu.Unlock()

	if onDispatch {
		c.terminate(st)
	} else {
		c.do(func() { c.terminate(st) })
	}
}

// terminate runs on the dispatch context, exactly once per call.
func (c *ClientCall[Q, R]) terminate(st *status.Status) {
	close(c.done)
	if c.tearDown != nil {
		c.tearDown()
	}
	if st != nil {
		c.observer.OnStreamFinish(st)
	}
}

func (c *ClientCall[Q, R]) startRead() {
	(&readOperation[Q, R]{call: c}).Start()
}

// writeOperation sends one message. Start only submits the blocking
// Send to the transport; the transport goroutine holds the sole
// reference to the operation until it posts the completion back to the
// dispatch context, which invokes Complete and then drops it.
type writeOperation[Q, R proto.Message] struct {
	call *ClientCall[Q, R]
	msg  Q
	err  error
}

func (op *writeOperation[Q, R]) Start() {
	c := op.call
	go func() {
		op.err = c.stream.Send(op.msg)
		c.do(func() { op.Complete(op.err == nil) })
	}()
}

func (op *writeOperation[Q, R]) Complete(ok bool) {
	c := op.call
	if ok {
		c.writer.DequeueNextWrite()
		return
	}
	// A Send that fails with io.EOF means the call is already over and
	// the read loop will surface the real terminal status. Anything
	// else ends the call here instead of draining further writes.
	if !errors.Is(op.err, io.EOF) {
		c.finish(status.Convert(op.err), true)
	}
}

// closeSendOperation half-closes the send side, sequenced behind any
// buffered writes.
type closeSendOperation[Q, R proto.Message] struct {
	call *ClientCall[Q, R]
}

func (op *closeSendOperation[Q, R]) Start() {
	c := op.call
	go func() {
		err := c.stream.CloseSend()
		c.do(func() { op.Complete(err == nil) })
	}()
}

func (op *closeSendOperation[Q, R]) Complete(bool) {
	// Nothing can be buffered behind a half-close, but draining keeps
	// the writer's state consistent either way. A CloseSend failure
	// means the call is over; the read loop reports it.
	op.call.writer.DequeueNextWrite()
}

// readOperation receives one message. Like sends, at most one receive
// is in flight at a time; each completion starts the next.
type readOperation[Q, R proto.Message] struct {
	call *ClientCall[Q, R]
	msg  R
	err  error
}

func (op *readOperation[Q, R]) Start() {
	c := op.call
	go func() {
		op.msg, op.err = c.stream.Recv()
		c.do(func() { op.Complete(op.err == nil) })
	}()
}

func (op *readOperation[Q, R]) Complete(ok bool) {
	c := op.call
	if ok {
		c.observer.OnStreamRead(op.msg)
		c.startRead()
		return
	}
	if errors.Is(op.err, io.EOF) {
		// Graceful end of stream from the server.
		c.finish(status.New(codes.OK, ""), true)
		return
	}
	c.finish(status.Convert(op.err), true)
}
