// Package notify provides filesystem change notifications for a watched
// directory and the files inside it.
package notify

import "fmt"

// Op is the kind of change observed on a path.
type Op int

const (
	// Created is emitted when a new entry appears in the watched directory.
	Created Op = iota + 1
	// Removed is emitted when an entry disappears from the watched directory.
	Removed
	// Modified is emitted when a file's content changes.
	Modified
	// Renamed is emitted when a file is renamed (e.g., log rotation).
	Renamed
)

func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	default:
		return fmt.Sprintf("unknown(%d)", int(op))
	}
}

// Event is a single change notification.
type Event struct {
	Op   Op
	Path string
}

func (ev Event) String() string {
	return ev.Op.String() + " " + ev.Path
}

// Notifier streams change events for one directory.
// Both channels are closed once the notifier is closed.
type Notifier interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

const defaultChannelSize = 1024
