package notify

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/leptonai/harvester/pkg/log"
)

var _ Notifier = (*fsnotifyNotifier)(nil)

type fsnotifyNotifier struct {
	dir     string
	watcher *fsnotify.Watcher

	eventsC chan Event
	errorsC chan error

	closeOnce sync.Once
	closeC    chan struct{}
	doneC     chan struct{}
}

// NewFsnotify watches the directory using inotify/kqueue/ReadDirectoryChangesW.
// Events for files inside the directory are reported under the file path.
func NewFsnotify(dir string) (Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	n := &fsnotifyNotifier{
		dir:     dir,
		watcher: w,
		eventsC: make(chan Event, defaultChannelSize),
		errorsC: make(chan error, 16),
		closeC:  make(chan struct{}),
		doneC:   make(chan struct{}),
	}
	go n.run()

	log.Logger.Infow("watching directory", "dir", dir, "notifier", "fsnotify")
	return n, nil
}

func (n *fsnotifyNotifier) Events() <-chan Event {
	return n.eventsC
}

func (n *fsnotifyNotifier) Errors() <-chan error {
	return n.errorsC
}

func (n *fsnotifyNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.closeC)
		err = n.watcher.Close()
		<-n.doneC
	})
	return err
}

func (n *fsnotifyNotifier) run() {
	defer close(n.doneC)
	defer close(n.eventsC)
	defer close(n.errorsC)

	for {
		select {
		case <-n.closeC:
			return

		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			for _, converted := range translate(ev) {
				select {
				case <-n.closeC:
					return
				case n.eventsC <- converted:
				}
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			select {
			case n.errorsC <- err:
			default:
				log.Logger.Warnw("dropped fsnotify error", "dir", n.dir, "error", err)
			}
		}
	}
}

// translate maps one fsnotify event to zero or more events.
// A single fsnotify event may carry several ops; they are emitted in
// create, write, rename, remove order. Chmod alone is ignored.
func translate(ev fsnotify.Event) []Event {
	var out []Event
	if ev.Has(fsnotify.Create) {
		out = append(out, Event{Op: Created, Path: ev.Name})
	}
	if ev.Has(fsnotify.Write) {
		out = append(out, Event{Op: Modified, Path: ev.Name})
	}
	if ev.Has(fsnotify.Rename) {
		out = append(out, Event{Op: Renamed, Path: ev.Name})
	}
	if ev.Has(fsnotify.Remove) {
		out = append(out, Event{Op: Removed, Path: ev.Name})
	}
	return out
}
