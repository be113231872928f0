// Package heartbeat runs a function at a fixed interval until stopped.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/leptonai/harvester/pkg/log"
)

// DefaultInterval is the interval between two forced flushes.
const DefaultInterval = 10 * time.Second

// Heartbeat calls beat every interval.
type Heartbeat struct {
	interval time.Duration
	beat     func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	doneC  chan struct{}
}

// New creates a heartbeat. An interval <= 0 uses DefaultInterval.
func New(interval time.Duration, beat func(context.Context)) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Heartbeat{
		interval: interval,
		beat:     beat,
	}
}

func (h *Heartbeat) Interval() time.Duration {
	return h.interval
}

// Start begins ticking in the background. The heartbeat stops when ctx
// is canceled or Stop is called. Calling Start on a running heartbeat is
// a no-op.
func (h *Heartbeat) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		return
	}

	cctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.doneC = make(chan struct{})
	go h.run(cctx, h.doneC)
}

// Stop stops the heartbeat and waits for an in-flight beat to return.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, doneC := h.cancel, h.doneC
	h.cancel, h.doneC = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-doneC
}

func (h *Heartbeat) run(ctx context.Context, doneC chan struct{}) {
	defer close(doneC)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		log.Logger.Debugw("alive")
		h.beat(ctx)
	}
}
