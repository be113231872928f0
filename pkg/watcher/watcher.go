// Package watcher attaches a tailer to every file of a directory and
// dispatches filesystem notifications to them.
//
// All notifications are handled on a single goroutine, so the reads of
// one file happen in the order the notifications arrived.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/leptonai/harvester/pkg/batcher"
	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/metrics"
	"github.com/leptonai/harvester/pkg/notify"
	"github.com/leptonai/harvester/pkg/tailer"
)

// ErrListDirectory is returned when the watched directory cannot be listed.
var ErrListDirectory = errors.New("failed to list directory")

// Batcher receives the lines read by the tailers.
type Batcher interface {
	Push(ctx context.Context, filename string, lines []string) (batcher.Pass, error)
	FlushFile(ctx context.Context, filename string) batcher.Pass
}

// File is a point-in-time view of one tailed file.
type File struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
}

type Watcher struct {
	fs       afero.Fs
	dir      string
	notifier notify.Notifier
	batcher  Batcher
	op       Op

	mu      sync.RWMutex
	tailers map[string]*tailer.Tailer

	startOnce sync.Once
	doneC     chan struct{}
}

func New(fs afero.Fs, dir string, notifier notify.Notifier, b Batcher, opts ...OpOption) (*Watcher, error) {
	op := Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}
	return &Watcher{
		fs:       fs,
		dir:      dir,
		notifier: notifier,
		batcher:  b,
		op:       op,
		tailers:  make(map[string]*tailer.Tailer),
		doneC:    make(chan struct{}),
	}, nil
}

// Start attaches a tailer to every file currently in the directory and
// then handles notifications in the background until ctx is canceled or
// the notifier is closed.
//
// A listing failure does not stop the watcher: no pre-existing file is
// tailed, but files created afterwards still are.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		log.Logger.Infow("starting watcher", "dir", w.dir, "removePolicy", w.op.removePolicy)

		paths, err := w.List()
		if err != nil {
			metrics.RecordError(metrics.ErrorKindList)
			log.Logger.Warnw("failed to list directory -- only new files will be watched", "dir", w.dir, "error", err)
		}
		for _, p := range paths {
			if err := w.Attach(p); err != nil {
				if errors.Is(err, tailer.ErrIsDirectory) {
					continue
				}
				metrics.RecordError(metrics.ErrorKindAttach)
				log.Logger.Warnw("failed to attach tailer", "path", p, "error", err)
			}
		}

		go w.run(ctx)
	})
}

// Done is closed once the notification loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneC
}

// List returns the regular files of the watched directory.
func (w *Watcher) List() ([]string, error) {
	infos, err := afero.ReadDir(w.fs, w.dir)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrListDirectory, w.dir, err)
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, info.Name()))
	}
	return paths, nil
}

// Attach starts tailing the file at path from its current size.
// An existing tailer for the same path is replaced.
func (w *Watcher) Attach(path string) error {
	t, err := tailer.New(w.fs, path, w.op.tailerOpts...)
	if err != nil {
		return err
	}

	w.mu.Lock()
	_, replaced := w.tailers[path]
	w.tailers[path] = t
	n := len(w.tailers)
	w.mu.Unlock()

	if replaced {
		log.Logger.Infow("re-attached tailer", "path", path, "offset", t.Offset())
	}
	metrics.SetFilesWatched(n)
	return nil
}

// Detach stops tailing the file at path. It returns false if the path
// had no tailer.
func (w *Watcher) Detach(path string) bool {
	w.mu.Lock()
	_, ok := w.tailers[path]
	delete(w.tailers, path)
	n := len(w.tailers)
	w.mu.Unlock()

	if ok {
		metrics.SetFilesWatched(n)
	}
	return ok
}

// Files returns the tailed files sorted by path.
func (w *Watcher) Files() []File {
	w.mu.RLock()
	files := make([]File, 0, len(w.tailers))
	for _, t := range w.tailers {
		files = append(files, File{Path: t.Path(), Name: t.Name(), Offset: t.Offset()})
	}
	w.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func (w *Watcher) tailerFor(path string) (*tailer.Tailer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.tailers[path]
	return t, ok
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneC)

	eventsC := w.notifier.Events()
	errorsC := w.notifier.Errors()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-eventsC:
			if !ok {
				log.Logger.Debugw("notifier closed", "dir", w.dir)
				return
			}
			w.handle(ctx, ev)

		case err, ok := <-errorsC:
			if !ok {
				errorsC = nil
				continue
			}
			metrics.RecordError(metrics.ErrorKindNotify)
			log.Logger.Warnw("notifier error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev notify.Event) {
	metrics.RecordEvent(ev.Op.String())

	switch ev.Op {
	case notify.Created:
		log.Logger.Infow("added", "path", ev.Path)
		if err := w.Attach(ev.Path); err != nil {
			if errors.Is(err, tailer.ErrIsDirectory) {
				log.Logger.Debugw("skipping directory", "path", ev.Path)
				return
			}
			metrics.RecordError(metrics.ErrorKindAttach)
			log.Logger.Warnw("failed to attach tailer", "path", ev.Path, "error", err)
		}

	case notify.Removed:
		log.Logger.Infow("removed", "path", ev.Path)
		w.gone(ctx, ev.Path)

	case notify.Modified, notify.Renamed:
		t, ok := w.tailerFor(ev.Path)
		if !ok {
			log.Logger.Debugw("no tailer for path -- ignoring", "path", ev.Path, "op", ev.Op)
			return
		}
		w.read(ctx, t, ev.Op)

	default:
		log.Logger.Warnw("unknown event", "event", ev)
	}
}

// gone applies the remove policy to a path that left the directory.
func (w *Watcher) gone(ctx context.Context, path string) {
	if w.op.removePolicy != RemoveTeardown {
		return
	}
	if w.Detach(path) {
		w.batcher.FlushFile(ctx, filepath.Base(path))
	}
}

func (w *Watcher) read(ctx context.Context, t *tailer.Tailer, op notify.Op) {
	res, err := t.Handle(op)
	// fsnotify reports a file moved out of the directory as a rename of
	// the old name only
	if err != nil && op == notify.Renamed && errors.Is(err, fs.ErrNotExist) {
		log.Logger.Infow("renamed out of directory", "path", t.Path())
		w.gone(ctx, t.Path())
		return
	}
	if err != nil {
		kind := metrics.ErrorKindRead
		if errors.Is(err, tailer.ErrStat) {
			kind = metrics.ErrorKindStat
		}
		metrics.RecordError(kind)
		log.Logger.Warnw("failed to read new lines", "path", t.Path(), "op", op, "error", err)
		return
	}
	if res.Skipped {
		metrics.RecordSkipped()
		log.Logger.Debugw("file did not grow -- skipped", "path", t.Path(), "offset", res.From)
		return
	}

	metrics.RecordRead(res.To-res.From, len(res.Lines))
	if _, err := w.batcher.Push(ctx, res.Name, res.Lines); err != nil {
		log.Logger.Errorw("failed to push lines", "path", t.Path(), "error", err)
	}
}
