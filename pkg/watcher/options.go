package watcher

import (
	"fmt"

	"github.com/leptonai/harvester/pkg/tailer"
)

// RemovePolicy decides what happens to a tailer when its file is removed.
type RemovePolicy string

const (
	// RemoveTeardown detaches the tailer and flushes the file's buffered lines.
	RemoveTeardown RemovePolicy = "teardown"
	// RemoveKeep only logs the removal. The tailer stays registered and
	// the file's buffered lines wait for the next flush pass.
	RemoveKeep RemovePolicy = "keep"
)

func ParseRemovePolicy(s string) (RemovePolicy, error) {
	switch RemovePolicy(s) {
	case "":
		return RemoveTeardown, nil
	case RemoveTeardown, RemoveKeep:
		return RemovePolicy(s), nil
	default:
		return "", fmt.Errorf("invalid remove policy %q (supported: %q, %q)", s, RemoveTeardown, RemoveKeep)
	}
}

type Op struct {
	removePolicy RemovePolicy
	tailerOpts   []tailer.OpOption
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	var err error
	op.removePolicy, err = ParseRemovePolicy(string(op.removePolicy))
	return err
}

func WithRemovePolicy(p RemovePolicy) OpOption {
	return func(op *Op) {
		op.removePolicy = p
	}
}

// WithTailerOptions sets the options used for every attached tailer.
func WithTailerOptions(opts ...tailer.OpOption) OpOption {
	return func(op *Op) {
		op.tailerOpts = append(op.tailerOpts, opts...)
	}
}
