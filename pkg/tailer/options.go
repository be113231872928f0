package tailer

type Op struct {
	renamePolicy RenamePolicy
	filterPolicy FilterPolicy
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}

	var err error
	if op.renamePolicy, err = ParseRenamePolicy(string(op.renamePolicy)); err != nil {
		return err
	}
	if op.filterPolicy, err = ParseFilterPolicy(string(op.filterPolicy)); err != nil {
		return err
	}
	return nil
}

func WithRenamePolicy(p RenamePolicy) OpOption {
	return func(op *Op) {
		op.renamePolicy = p
	}
}

func WithFilterPolicy(p FilterPolicy) OpOption {
	return func(op *Op) {
		op.filterPolicy = p
	}
}
