package grpccall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOperation records the order in which operations are started. In
// production the completion notifier invokes Complete and the owning
// call advances the queue; these tests drive DequeueNextWrite directly.
type testOperation struct {
	starts *[]int
	id     int
}

func (op *testOperation) Start() {
	*op.starts = append(*op.starts, op.id)
}

func (op *testOperation) Complete(bool) {}

func TestBufferedWriterImmediateWrite(t *testing.T) {
	var starts []int
	var writer BufferedWriter

	writer.EnqueueWrite(&testOperation{starts: &starts, id: 1})
	require.Equal(t, []int{1}, starts)

	// A single write on an idle writer leaves the buffer empty: once
	// its completion is processed the writer is idle again and the next
	// write starts immediately.
	writer.DequeueNextWrite()
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 2})
	require.Equal(t, []int{1, 2}, starts)
}

func TestBufferedWriterBuffersWhileBusy(t *testing.T) {
	var starts []int
	var writer BufferedWriter

	writer.EnqueueWrite(&testOperation{starts: &starts, id: 1})
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 2})
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 3})
	require.Equal(t, []int{1}, starts)

	writer.DequeueNextWrite()
	require.Equal(t, []int{1, 2}, starts)

	writer.DequeueNextWrite()
	require.Equal(t, []int{1, 2, 3}, starts)

	// An extra call to DequeueNextWrite is a no-op.
	writer.DequeueNextWrite()
	require.Equal(t, []int{1, 2, 3}, starts)
}

func TestBufferedWriterPreservesOrderAcrossInterleavings(t *testing.T) {
	var starts []int
	var writer BufferedWriter

	next := 0
	enqueue := func(n int) {
		for i := 0; i < n; i++ {
			writer.EnqueueWrite(&testOperation{starts: &starts, id: next})
			next++
		}
	}

	enqueue(3)
	writer.DequeueNextWrite()
	enqueue(2)
	writer.DequeueNextWrite()
	writer.DequeueNextWrite()
	enqueue(1)
	writer.DequeueNextWrite()
	writer.DequeueNextWrite()
	writer.DequeueNextWrite()

	// Every operation started exactly once, in submission order.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, starts)
}

func TestBufferedWriterDequeueWhenIdle(t *testing.T) {
	var starts []int
	var writer BufferedWriter

	// Never had a write in flight: must not crash and must not start
	// anything.
	writer.DequeueNextWrite()
	writer.DequeueNextWrite()
	assert.Empty(t, starts)

	// The idle state is not corrupted: the next write is immediate.
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 1})
	assert.Equal(t, []int{1}, starts)
}

func TestBufferedWriterDrainThenReuse(t *testing.T) {
	var starts []int
	var writer BufferedWriter

	writer.EnqueueWrite(&testOperation{starts: &starts, id: 1})
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 2})
	writer.DequeueNextWrite()
	writer.DequeueNextWrite()

	// Fully drained and spuriously dequeued; the writer still accepts
	// and immediately starts new writes.
	writer.DequeueNextWrite()
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 3})
	writer.EnqueueWrite(&testOperation{starts: &starts, id: 4})
	require.Equal(t, []int{1, 2, 3}, starts)
	writer.DequeueNextWrite()
	require.Equal(t, []int{1, 2, 3, 4}, starts)
}
