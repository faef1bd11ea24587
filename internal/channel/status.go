package channel

import (
	"sync"

	"github.com/google/uuid"
)

// State is the connection state. Exactly one value is held at a time.
type State string

const (
	StateConnecting  State = "connecting"
	StateOpen        State = "open"
	StateClosing     State = "closing"
	StateClosed      State = "closed"
	StateError       State = "error"
	StateCircuitOpen State = "circuit_open"
)

// broadcaster holds the current connection state and notifies registered
// listeners on change.
type broadcaster struct {
	mu        sync.Mutex
	state     State
	listeners map[string]func(State)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		state:     StateClosed,
		listeners: make(map[string]func(State)),
	}
}

// get returns the current state.
func (b *broadcaster) get() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// set transitions to a new state and notifies listeners. A transition to the
// current state is a no-op. Listeners are invoked outside the lock so a
// listener may register or remove listeners.
func (b *broadcaster) set(s State) {
	b.mu.Lock()
	if b.state == s {
		b.mu.Unlock()
		return
	}
	b.state = s
	fns := make([]func(State), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// listen registers a listener and returns a function that removes exactly
// that listener.
func (b *broadcaster) listen(fn func(State)) func() {
	id := uuid.NewString()

	b.mu.Lock()
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}
