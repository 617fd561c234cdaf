package grpccall

// Operation is a unit of asynchronous work submitted to the underlying
// transport, such as sending one message on a stream.
//
// Start initiates the work and must not block; it only submits the work
// to the transport. It is called at most once per operation. After
// Start returns, the operation belongs to the transport's completion
// machinery, which later invokes Complete exactly once with ok
// indicating whether the work succeeded, and then drops its reference
// to the operation. Nothing in this package calls Complete or retains a
// reference to an operation after starting it.
type Operation interface {
	Start()
	Complete(ok bool)
}
