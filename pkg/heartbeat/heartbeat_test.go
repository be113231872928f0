package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultInterval(t *testing.T) {
	h := New(0, func(context.Context) {})
	assert.Equal(t, 10*time.Second, h.Interval())
}

func TestBeats(t *testing.T) {
	var beats atomic.Int64
	h := New(10*time.Millisecond, func(context.Context) { beats.Add(1) })

	h.Start(context.Background())
	h.Start(context.Background()) // no-op

	assert.Eventually(t, func() bool { return beats.Load() >= 3 }, 5*time.Second, 5*time.Millisecond)

	h.Stop()
	stopped := beats.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, beats.Load())

	// stopping twice is safe
	h.Stop()
}

func TestStopsOnContextCancel(t *testing.T) {
	var beats atomic.Int64
	h := New(10*time.Millisecond, func(context.Context) { beats.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	assert.Eventually(t, func() bool { return beats.Load() >= 1 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	h.Stop()
	n := beats.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, beats.Load())
}

func TestRestart(t *testing.T) {
	var beats atomic.Int64
	h := New(10*time.Millisecond, func(context.Context) { beats.Add(1) })

	h.Start(context.Background())
	h.Stop()
	before := beats.Load()

	h.Start(context.Background())
	assert.Eventually(t, func() bool { return beats.Load() > before }, 5*time.Second, 5*time.Millisecond)
	h.Stop()
}
