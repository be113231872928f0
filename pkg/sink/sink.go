// Package sink defines the destination of flushed line batches.
package sink

import (
	"context"
)

// Sink accepts a batch of lines for one file.
// The harvester does not retry; a returned error is logged and the
// batch is dropped.
type Sink interface {
	Log(ctx context.Context, filename string, lines []string) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, filename string, lines []string) error

func (f Func) Log(ctx context.Context, filename string, lines []string) error {
	return f(ctx, filename, lines)
}

// Nop discards every batch.
var Nop Sink = Func(func(context.Context, string, []string) error { return nil })

type batchIDKey struct{}

// WithBatchID attaches the flush pass ID to the context passed to sinks.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchIDFromContext returns the flush pass ID, or "" if none is set.
func BatchIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}
