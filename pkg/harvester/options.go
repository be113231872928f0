package harvester

import (
	"time"

	"github.com/spf13/afero"

	"github.com/leptonai/harvester/pkg/batcher"
	"github.com/leptonai/harvester/pkg/heartbeat"
	"github.com/leptonai/harvester/pkg/notify"
	"github.com/leptonai/harvester/pkg/tailer"
	"github.com/leptonai/harvester/pkg/watcher"
)

type Op struct {
	fs                afero.Fs
	notifier          notify.Notifier
	pollInterval      time.Duration
	lineThreshold     int
	heartbeatInterval time.Duration
	renamePolicy      tailer.RenamePolicy
	filterPolicy      tailer.FilterPolicy
	removePolicy      watcher.RemovePolicy
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	if op.fs == nil {
		op.fs = afero.NewOsFs()
	}
	if op.lineThreshold <= 0 {
		op.lineThreshold = batcher.DefaultLineThreshold
	}
	if op.heartbeatInterval <= 0 {
		op.heartbeatInterval = heartbeat.DefaultInterval
	}

	var err error
	if op.renamePolicy, err = tailer.ParseRenamePolicy(string(op.renamePolicy)); err != nil {
		return err
	}
	if op.filterPolicy, err = tailer.ParseFilterPolicy(string(op.filterPolicy)); err != nil {
		return err
	}
	if op.removePolicy, err = watcher.ParseRemovePolicy(string(op.removePolicy)); err != nil {
		return err
	}
	return nil
}

// WithFs sets the filesystem the files are listed and read from.
// Defaults to the OS filesystem.
func WithFs(fs afero.Fs) OpOption {
	return func(op *Op) {
		op.fs = fs
	}
}

// WithNotifier injects the change notification source.
// The harvester takes ownership and closes it on Stop.
func WithNotifier(n notify.Notifier) OpOption {
	return func(op *Op) {
		op.notifier = n
	}
}

// WithPoll replaces fsnotify with periodic directory scans.
// Ignored when a notifier is injected with WithNotifier.
func WithPoll(interval time.Duration) OpOption {
	return func(op *Op) {
		if interval <= 0 {
			interval = notify.DefaultPollInterval
		}
		op.pollInterval = interval
	}
}

func WithLineThreshold(n int) OpOption {
	return func(op *Op) {
		op.lineThreshold = n
	}
}

func WithHeartbeatInterval(d time.Duration) OpOption {
	return func(op *Op) {
		op.heartbeatInterval = d
	}
}

func WithRenamePolicy(p tailer.RenamePolicy) OpOption {
	return func(op *Op) {
		op.renamePolicy = p
	}
}

func WithFilterPolicy(p tailer.FilterPolicy) OpOption {
	return func(op *Op) {
		op.filterPolicy = p
	}
}

func WithRemovePolicy(p watcher.RemovePolicy) OpOption {
	return func(op *Op) {
		op.removePolicy = p
	}
}
