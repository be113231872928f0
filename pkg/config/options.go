package config

import "github.com/mitchellh/go-homedir"

type Op struct {
	Directory string
}

type OpOption func(*Op)

func (op *Op) ApplyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	if op.Directory != "" {
		d, err := homedir.Expand(op.Directory)
		if err != nil {
			return err
		}
		op.Directory = d
	}
	return nil
}

// WithDirectory sets the default watched directory.
func WithDirectory(dir string) OpOption {
	return func(op *Op) {
		op.Directory = dir
	}
}
