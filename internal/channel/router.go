package channel

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives a dispatched message. A handler that panics is isolated:
// the panic is logged and the remaining handlers still run.
type Handler func(Message)

type subscription struct {
	id      string
	pattern Pattern
	handler Handler
}

// router is the registry of pattern→handler subscriptions. Subscriptions are
// independent of connection identity and survive transport churn.
type router struct {
	logger  *slog.Logger
	onPanic func()

	mu   sync.RWMutex
	subs map[string]subscription
}

func newRouter(logger *slog.Logger) *router {
	if logger == nil {
		logger = slog.Default()
	}
	return &router{
		logger: logger,
		subs:   make(map[string]subscription),
	}
}

// subscribe registers a handler and returns a function that removes exactly
// that registration.
func (r *router) subscribe(p Pattern, h Handler) func() {
	id := uuid.NewString()

	r.mu.Lock()
	r.subs[id] = subscription{id: id, pattern: p, handler: h}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// dispatch invokes every handler whose pattern matches the message type.
// Iteration runs over a snapshot so a handler may subscribe or unsubscribe
// mid-dispatch without corrupting the registry.
func (r *router) dispatch(msg Message) int {
	r.mu.RLock()
	snapshot := make([]subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		snapshot = append(snapshot, sub)
	}
	r.mu.RUnlock()

	matched := 0
	for _, sub := range snapshot {
		if !sub.pattern.Match(msg.Type) {
			continue
		}
		matched++
		r.invoke(sub, msg)
	}
	return matched
}

// invoke runs a single handler, containing any panic so the dispatch loop
// and the transport callback are never aborted by a subscriber.
func (r *router) invoke(sub subscription, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("subscriber handler panicked",
				"type", msg.Type,
				"subscription", sub.id,
				"panic", rec,
			)
			if r.onPanic != nil {
				r.onPanic()
			}
		}
	}()
	sub.handler(msg)
}

func (r *router) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
