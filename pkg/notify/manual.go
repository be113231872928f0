package notify

import "sync"

var _ Notifier = (*Manual)(nil)

// Manual is a notifier driven by its caller.
// It lets embedders feed events from their own change source, and lets
// tests drive the harvester deterministically.
type Manual struct {
	mu      sync.Mutex
	closed  bool
	closeC  chan struct{}
	senders sync.WaitGroup

	eventsC chan Event
	errorsC chan error
}

func NewManual() *Manual {
	return &Manual{
		closeC:  make(chan struct{}),
		eventsC: make(chan Event, defaultChannelSize),
		errorsC: make(chan error, defaultChannelSize),
	}
}

// Send enqueues an event. It blocks while the buffer is full and returns
// false if the notifier is closed before the event is enqueued.
func (m *Manual) Send(ev Event) bool {
	if !m.enter() {
		return false
	}
	defer m.senders.Done()

	select {
	case <-m.closeC:
		return false
	case m.eventsC <- ev:
		return true
	}
}

// SendError enqueues an error, returning false if the notifier is closed.
func (m *Manual) SendError(err error) bool {
	if !m.enter() {
		return false
	}
	defer m.senders.Done()

	select {
	case <-m.closeC:
		return false
	case m.errorsC <- err:
		return true
	}
}

// enter registers an in-flight send, unless the notifier is closed.
func (m *Manual) enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.senders.Add(1)
	return true
}

func (m *Manual) Events() <-chan Event {
	return m.eventsC
}

func (m *Manual) Errors() <-chan error {
	return m.errorsC
}

// Close unblocks pending senders, then closes both channels.
func (m *Manual) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.closeC)
	m.mu.Unlock()

	m.senders.Wait()
	close(m.eventsC)
	close(m.errorsC)
	return nil
}
