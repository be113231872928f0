// Package harvester tails every file of a directory and forwards the
// appended lines, batched per file, to a sink.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	apiv1 "github.com/leptonai/harvester/api/v1"
	"github.com/leptonai/harvester/pkg/batcher"
	"github.com/leptonai/harvester/pkg/heartbeat"
	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/notify"
	"github.com/leptonai/harvester/pkg/sink"
	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

var (
	ErrAlreadyStarted = errors.New("harvester already started")
	ErrStopped        = errors.New("harvester stopped")
)

type Harvester struct {
	dir string
	op  Op

	batcher   *batcher.Batcher
	heartbeat *heartbeat.Heartbeat

	mu       sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	notifier notify.Notifier
	watcher  *watcher.Watcher
}

// New creates a harvester for dir. Nothing is read until Start.
func New(dir string, s sink.Sink, opts ...OpOption) (*Harvester, error) {
	if dir == "" {
		return nil, errors.New("directory is required")
	}
	if s == nil {
		return nil, errors.New("sink is required")
	}

	op := Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	b := batcher.New(s, op.lineThreshold)
	h := &Harvester{
		dir:      dir,
		op:       op,
		batcher:  b,
		notifier: op.notifier,
	}
	h.heartbeat = heartbeat.New(op.heartbeatInterval, func(ctx context.Context) {
		b.Heartbeat(ctx)
	})
	return h, nil
}

func (h *Harvester) Dir() string {
	return h.dir
}

// Start creates the notifier (unless one was injected), attaches a
// tailer to every file already in the directory and starts the reactor
// and the heartbeat.
func (h *Harvester) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return ErrStopped
	}
	if h.started {
		return ErrAlreadyStarted
	}

	if h.notifier == nil {
		n, err := h.newNotifier()
		if err != nil {
			return err
		}
		h.notifier = n
	}

	w, err := watcher.New(
		h.op.fs,
		h.dir,
		h.notifier,
		h.batcher,
		watcher.WithRemovePolicy(h.op.removePolicy),
		watcher.WithTailerOptions(
			tailer.WithRenamePolicy(h.op.renamePolicy),
			tailer.WithFilterPolicy(h.op.filterPolicy),
		),
	)
	if err != nil {
		return err
	}
	h.watcher = w

	cctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	log.Logger.Infow("starting harvester",
		"dir", h.dir,
		"lineThreshold", h.op.lineThreshold,
		"heartbeatInterval", h.op.heartbeatInterval,
		"renamePolicy", h.op.renamePolicy,
		"filterPolicy", h.op.filterPolicy,
		"removePolicy", h.op.removePolicy,
	)
	w.Start(cctx)
	h.heartbeat.Start(cctx)

	h.started = true
	return nil
}

func (h *Harvester) newNotifier() (notify.Notifier, error) {
	if h.op.pollInterval > 0 {
		n, err := notify.NewPoller(h.op.fs, h.dir, h.op.pollInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to create poller: %w", err)
		}
		return n, nil
	}
	n, err := notify.NewFsnotify(h.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return n, nil
}

// Stop stops the reactor and the heartbeat, flushes every buffered line
// one last time and closes the notifier. Stop is safe to call more than
// once and before Start.
func (h *Harvester) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	started, cancel, w, n := h.started, h.cancel, h.watcher, h.notifier
	h.mu.Unlock()

	if started {
		cancel()
		h.heartbeat.Stop()
		<-w.Done()

		p := h.batcher.Heartbeat(context.Background())
		log.Logger.Infow("stopped harvester", "dir", h.dir, "finalFlushFiles", len(p.Flushed))
	}

	if n != nil {
		if err := n.Close(); err != nil {
			log.Logger.Warnw("failed to close notifier", "dir", h.dir, "error", err)
		}
	}
}

// Flush runs a flush pass immediately, like a heartbeat would.
func (h *Harvester) Flush(ctx context.Context) batcher.Pass {
	return h.batcher.Heartbeat(ctx)
}

// Files returns the tailed files, sorted by path.
func (h *Harvester) Files() []watcher.File {
	h.mu.Lock()
	w := h.watcher
	h.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Files()
}

// Status returns a snapshot of the tailed files and buffered lines.
func (h *Harvester) Status() apiv1.Status {
	st := apiv1.Status{
		Time:              metav1.NewTime(time.Now().UTC()),
		Directory:         h.dir,
		LineThreshold:     h.batcher.Threshold(),
		HeartbeatInterval: h.heartbeat.Interval().String(),
	}

	buffered := h.batcher.Buffered()
	for _, f := range h.Files() {
		size := int64(-1)
		if info, err := h.op.fs.Stat(f.Path); err == nil {
			size = info.Size()
		}
		st.Files = append(st.Files, apiv1.FileStatus{
			Path:          f.Path,
			Name:          f.Name,
			Offset:        f.Offset,
			Size:          size,
			BufferedLines: buffered[f.Name],
		})
		delete(buffered, f.Name)
	}
	if len(buffered) > 0 {
		st.Pending = buffered
	}
	return st
}
