// Package batch groups many independent store operations into fixed size
// chunks so that each round-trip to the store has a bounded, predictable size
// and memory use stays flat regardless of how many operations are produced.
package batch

import (
	"context"

	"github.com/Luismorlan/chirpmux/store"
)

// Writer accumulates units of work into a pipeline and flushes it once the
// number of queued operations reaches the chunk size. A unit (all operations
// queued by one Queue call) is never split across two flushes.
//
// A Writer is meant to be used by a single goroutine for the duration of one
// logical operation.
type Writer struct {
	newPipeline func() store.Pipeline
	pipe        store.Pipeline
	chunkSize   int
	afterFlush  func()

	flushes int
	ops     int
}

type Option func(*Writer)

// WithAfterFlush registers fn to be called after every successful flush. Replies
// of the flushed operations are populated at that point.
func WithAfterFlush(fn func()) Option {
	return func(w *Writer) {
		w.afterFlush = fn
	}
}

// NewWriter creates a Writer. newPipeline is called for every chunk, pass
// Store.TxPipeline to apply each chunk all-or-nothing. chunkSize < 1 means 1.
func NewWriter(newPipeline func() store.Pipeline, chunkSize int, opts ...Option) *Writer {
	if chunkSize < 1 {
		chunkSize = 1
	}
	w := &Writer{
		newPipeline: newPipeline,
		pipe:        newPipeline(),
		chunkSize:   chunkSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Queue lets fn add one unit of operations and flushes if the chunk is full.
func (w *Writer) Queue(ctx context.Context, fn func(p store.Pipeline)) error {
	fn(w.pipe)
	if w.pipe.Len() < w.chunkSize {
		return nil
	}
	return w.Flush(ctx)
}

// Flush sends whatever is queued. The context is checked first: an abandoned
// operation drops the pending chunk instead of sending part of it.
func (w *Writer) Flush(ctx context.Context) error {
	n := w.pipe.Len()
	if n == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		w.pipe = w.newPipeline()
		return err
	}
	if err := w.pipe.Exec(ctx); err != nil {
		w.pipe = w.newPipeline()
		return err
	}
	w.pipe = w.newPipeline()
	w.flushes++
	w.ops += n
	if w.afterFlush != nil {
		w.afterFlush()
	}
	return nil
}

// Flushes returns the number of chunks sent so far.
func (w *Writer) Flushes() int {
	return w.flushes
}

// Ops returns the number of operations sent so far.
func (w *Writer) Ops() int {
	return w.ops
}
