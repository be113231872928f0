package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/leptonai/harvester/pkg/log"
)

// DefaultPollInterval is the interval between two directory scans.
const DefaultPollInterval = time.Second

var _ Notifier = (*poller)(nil)

// poller detects changes by periodically listing the directory and
// comparing file sizes. Useful for mounts that do not deliver inotify
// events (e.g., network filesystems, some container bind mounts).
type poller struct {
	fs       afero.Fs
	dir      string
	interval time.Duration

	// only accessed from the polling goroutine (and the constructor)
	sizes map[string]int64

	eventsC chan Event
	errorsC chan error

	cancel    context.CancelFunc
	closeOnce sync.Once
	doneC     chan struct{}
}

// NewPoller returns a notifier that scans "dir" every "interval".
// Files present at construction are recorded silently, so only
// changes made afterwards are reported.
func NewPoller(fs afero.Fs, dir string, interval time.Duration) (Notifier, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p := &poller{
		fs:       fs,
		dir:      dir,
		interval: interval,
		sizes:    make(map[string]int64),
		eventsC:  make(chan Event, defaultChannelSize),
		errorsC:  make(chan error, 16),
		doneC:    make(chan struct{}),
	}

	sizes, err := p.scan()
	if err != nil {
		return nil, err
	}
	p.sizes = sizes

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)

	log.Logger.Infow("watching directory", "dir", dir, "notifier", "poll", "interval", interval)
	return p, nil
}

func (p *poller) Events() <-chan Event {
	return p.eventsC
}

func (p *poller) Errors() <-chan error {
	return p.errorsC
}

func (p *poller) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.doneC
	})
	return nil
}

func (p *poller) run(ctx context.Context) {
	defer close(p.doneC)
	defer close(p.eventsC)
	defer close(p.errorsC)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		evs, err := p.poll()
		if err != nil {
			select {
			case p.errorsC <- err:
			default:
				log.Logger.Warnw("dropped poll error", "dir", p.dir, "error", err)
			}
			continue
		}
		for _, ev := range evs {
			select {
			case <-ctx.Done():
				return
			case p.eventsC <- ev:
			}
		}
	}
}

// poll scans the directory once and returns the changes since the
// previous scan, sorted by path.
func (p *poller) poll() ([]Event, error) {
	cur, err := p.scan()
	if err != nil {
		return nil, err
	}

	var evs []Event
	for path, size := range cur {
		prev, ok := p.sizes[path]
		switch {
		case !ok:
			evs = append(evs, Event{Op: Created, Path: path})
		case size != prev:
			evs = append(evs, Event{Op: Modified, Path: path})
		}
	}
	for path := range p.sizes {
		if _, ok := cur[path]; !ok {
			evs = append(evs, Event{Op: Removed, Path: path})
		}
	}
	p.sizes = cur

	sort.Slice(evs, func(i, j int) bool {
		if evs[i].Path == evs[j].Path {
			return evs[i].Op < evs[j].Op
		}
		return evs[i].Path < evs[j].Path
	})
	return evs, nil
}

func (p *poller) scan() (map[string]int64, error) {
	infos, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %q: %w", p.dir, err)
	}
	sizes := make(map[string]int64, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		sizes[filepath.Join(p.dir, info.Name())] = info.Size()
	}
	return sizes, nil
}
