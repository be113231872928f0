// Package tailer reads the bytes appended to a single file since the
// last read and turns them into lines.
package tailer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/notify"
	"github.com/leptonai/harvester/pkg/offset"
)

var (
	// ErrStat is returned when the size of the file cannot be queried.
	ErrStat = errors.New("failed to stat file")
	// ErrRead is returned when the unread range cannot be read.
	ErrRead = errors.New("failed to read file")
	// ErrIsDirectory is returned when attaching to a directory.
	ErrIsDirectory = errors.New("path is a directory")
	// ErrUnsupportedOp is returned for events a tailer does not handle.
	ErrUnsupportedOp = errors.New("unsupported event")
)

// Result is the outcome of handling one notification.
type Result struct {
	// Name is the basename of the file, used as the batching key.
	Name string
	// Lines are the delivered lines after filtering.
	Lines []string
	// From and To is the byte range that was read.
	From int64
	To   int64
	// Skipped is true when the observed size was not ahead of the offset.
	Skipped bool
	// Advanced is true when the offset moved after the read.
	Advanced bool
}

// Tailer follows one file. It is not safe for concurrent use;
// events for a file must be handled one at a time, in arrival order.
type Tailer struct {
	fs      afero.Fs
	name    string
	tracker *offset.Tracker
	op      Op
}

// New attaches a tailer to the file at "path".
// The offset starts at the file's current size, so content already
// present in the file is never delivered.
func New(fs afero.Fs, path string, opts ...OpOption) (*Tailer, error) {
	op := Op{}
	if err := op.applyOpts(opts); err != nil {
		return nil, err
	}

	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrStat, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w %q", ErrIsDirectory, path)
	}

	log.Logger.Infow("watching", "path", path, "offset", info.Size())
	return &Tailer{
		fs:      fs,
		name:    filepath.Base(path),
		tracker: offset.New(path, info.Size()),
		op:      op,
	}, nil
}

func (t *Tailer) Path() string {
	return t.tracker.Path()
}

// Name returns the basename of the tailed file.
func (t *Tailer) Name() string {
	return t.name
}

func (t *Tailer) Offset() int64 {
	return t.tracker.Offset()
}

// Handle processes a Modified or Renamed notification.
// On error the offset is left unchanged.
func (t *Tailer) Handle(op notify.Op) (Result, error) {
	switch op {
	case notify.Modified:
		log.Logger.Debugw("changed", "path", t.Path())
	case notify.Renamed:
		log.Logger.Infow("renamed", "path", t.Path())
	default:
		return Result{Name: t.name}, fmt.Errorf("%w %s for %q", ErrUnsupportedOp, op, t.Path())
	}

	info, err := t.fs.Stat(t.Path())
	if err != nil {
		return Result{Name: t.name}, fmt.Errorf("%w %q: %w", ErrStat, t.Path(), err)
	}

	from, to, ok := t.tracker.Unread(info.Size())
	if !ok {
		return Result{Name: t.name, From: from, To: to, Skipped: true}, nil
	}

	b, err := t.readRange(from, to)
	if err != nil {
		return Result{Name: t.name, From: from, To: from}, err
	}

	res := Result{
		Name:  t.name,
		Lines: SplitLines(string(b), t.op.filterPolicy),
		From:  from,
		To:    to,
	}
	if op == notify.Modified || t.op.renamePolicy == RenameAdvance {
		res.Advanced = t.tracker.Advance(to)
	}
	return res, nil
}

func (t *Tailer) readRange(from, to int64) ([]byte, error) {
	f, err := t.fs.Open(t.Path())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrRead, t.Path(), err)
	}
	defer f.Close()

	buf := make([]byte, to-from)
	n, err := f.ReadAt(buf, from)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w %q [%d, %d): %w", ErrRead, t.Path(), from, to, err)
	}
	if int64(n) != to-from {
		return nil, fmt.Errorf("%w %q [%d, %d): short read of %d bytes", ErrRead, t.Path(), from, to, n)
	}
	return buf, nil
}

// SplitLines splits raw file content on "\n".
// The empty piece following a final "\n" terminates the last line and is
// not a line itself. A trailing piece without "\n" is returned as a line.
func SplitLines(data string, policy FilterPolicy) []string {
	if data == "" {
		return nil
	}
	pieces := strings.Split(data, "\n")
	if pieces[len(pieces)-1] == "" {
		pieces = pieces[:len(pieces)-1]
	}

	if policy == FilterNone {
		return pieces
	}

	lines := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if utf8.RuneCountInString(p) <= 1 {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}
