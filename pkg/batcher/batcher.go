// Package batcher buffers lines per file and flushes them to a sink.
//
// Flush policy: a flush pass is triggered by a heartbeat, or when any
// single file has buffered strictly more than the line threshold.
// A triggered pass flushes every buffered file, in the order the files
// first received lines, so that one busy file also bounds the staleness
// of all the others.
package batcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/metrics"
	"github.com/leptonai/harvester/pkg/sink"
)

// DefaultLineThreshold is the number of buffered lines a file may hold
// without triggering a flush.
const DefaultLineThreshold = 10

// ErrMissingFilename is returned when lines are pushed without a filename.
var ErrMissingFilename = errors.New("lines pushed without a filename")

// Flushed describes one sink call of a flush pass.
type Flushed struct {
	Filename string
	Lines    []string
	// Err is the sink error, if any. The lines are dropped either way.
	Err error
}

// Pass is the result of one flush pass.
// A zero Pass (empty ID) means no flush was triggered.
type Pass struct {
	ID      string
	Trigger string
	Flushed []Flushed
}

// Triggered returns true if the push caused a flush pass.
func (p Pass) Triggered() bool {
	return p.ID != ""
}

// Batcher owns the line buffers. It is safe for concurrent use; every
// mutation and every flush pass runs under a single lock so a pass sees a
// consistent snapshot of all buffers.
type Batcher struct {
	sink      sink.Sink
	threshold int

	mu      sync.Mutex
	order   []string
	buffers map[string][]string
}

// New creates a batcher. A threshold <= 0 uses DefaultLineThreshold.
func New(s sink.Sink, threshold int) *Batcher {
	if threshold <= 0 {
		threshold = DefaultLineThreshold
	}
	return &Batcher{
		sink:      s,
		threshold: threshold,
		buffers:   make(map[string][]string),
	}
}

func (b *Batcher) Threshold() int {
	return b.threshold
}

// Push is the single entry point of the batcher.
//
// With a filename, the lines are appended to that file's buffer (data
// mode) and a flush pass runs if any buffer now exceeds the threshold.
// With no filename and no lines (heartbeat mode), a flush pass runs
// unconditionally.
func (b *Batcher) Push(ctx context.Context, filename string, lines []string) (Pass, error) {
	if filename == "" && len(lines) > 0 {
		return Pass{}, ErrMissingFilename
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	trigger := metrics.TriggerHeartbeat
	if filename != "" {
		b.appendLocked(filename, lines)
		if !b.exceedsLocked() {
			return Pass{}, nil
		}
		trigger = metrics.TriggerThreshold
	}

	return b.flushLocked(ctx, trigger, b.order), nil
}

// Heartbeat forces a flush pass of every buffered file.
func (b *Batcher) Heartbeat(ctx context.Context) Pass {
	p, _ := b.Push(ctx, "", nil)
	return p
}

// FlushFile flushes the buffer of a single file, if it has one.
func (b *Batcher) FlushFile(ctx context.Context, filename string) Pass {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[filename]; !ok {
		return Pass{}
	}
	return b.flushLocked(ctx, metrics.TriggerRemove, []string{filename})
}

// Buffered returns a copy of the number of buffered lines per file.
func (b *Batcher) Buffered() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]int, len(b.buffers))
	for name, lines := range b.buffers {
		out[name] = len(lines)
	}
	return out
}

// Filenames returns the buffered filenames in flush order.
func (b *Batcher) Filenames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (b *Batcher) appendLocked(filename string, lines []string) {
	if len(lines) == 0 {
		return
	}
	if _, ok := b.buffers[filename]; !ok {
		b.order = append(b.order, filename)
	}
	b.buffers[filename] = append(b.buffers[filename], lines...)
	metrics.SetBufferedLines(b.totalLocked())
}

func (b *Batcher) exceedsLocked() bool {
	for _, lines := range b.buffers {
		if len(lines) > b.threshold {
			return true
		}
	}
	return false
}

func (b *Batcher) totalLocked() int {
	total := 0
	for _, lines := range b.buffers {
		total += len(lines)
	}
	return total
}

// flushLocked sends the buffers of the given files to the sink, in order,
// and removes them. An empty list is a no-op pass.
func (b *Batcher) flushLocked(ctx context.Context, trigger string, filenames []string) Pass {
	if len(filenames) == 0 {
		return Pass{}
	}

	pass := Pass{
		ID:      uuid.New().String(),
		Trigger: trigger,
	}
	metrics.RecordFlush(trigger)

	// copy since the loop mutates b.order
	names := make([]string, len(filenames))
	copy(names, filenames)

	sinkCtx := sink.WithBatchID(ctx, pass.ID)
	for _, name := range names {
		lines := trimLines(b.buffers[name])

		log.Logger.Infow("pushing", "file", name, "lines", len(lines), "pass", pass.ID, "trigger", trigger)

		start := time.Now()
		err := b.sink.Log(sinkCtx, name, lines)
		metrics.RecordSinkCall(len(lines), time.Since(start).Seconds(), err)
		if err != nil {
			log.Logger.Errorw("sink failed -- batch dropped", "file", name, "lines", len(lines), "pass", pass.ID, "error", err)
		}

		b.removeLocked(name)
		pass.Flushed = append(pass.Flushed, Flushed{Filename: name, Lines: lines, Err: err})
	}
	metrics.SetBufferedLines(b.totalLocked())

	return pass
}

func (b *Batcher) removeLocked(name string) {
	delete(b.buffers, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

// trimLines strips surrounding whitespace and embedded newlines from each line.
func trimLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.ReplaceAll(strings.TrimSpace(line), "\n", "")
	}
	return out
}
