package events

import (
	"sync"

	"go.uber.org/zap"
)

const (
	KindRegistrationUpdated  = "registration-updated"
	KindAdminActionCompleted = "admin-action-completed"
	KindRenewalSubmitted     = "renewal-submitted"

	// SubscribeAll matches every event kind.
	SubscribeAll = "*"
)

// Event is a change hint, not state. Consumers must re-read the record store;
// the publish and the persisted write are not transactionally linked.
type Event struct {
	RegistrationID string         `json:"registration_id"`
	Kind           string         `json:"kind"`
	Extra          map[string]any `json:"extra,omitempty"`
}

type Handler func(Event)

// Bus is the in-process pub/sub used to tell every open view that a
// registration changed. Dispatch is synchronous and fire-and-forget: no
// delivery guarantee across processes or restarts.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	logger *zap.Logger
}

func NewBus(logger ...*zap.Logger) *Bus {
	l := zap.L().Named("events.bus")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("events.bus")
	}
	return &Bus{
		subs:   make(map[string]map[int]Handler),
		logger: l,
	}
}

// Subscribe registers a handler for one kind (or SubscribeAll) and returns
// the function that removes it again.
func (b *Bus) Subscribe(kind string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// Publish dispatches the event to every handler subscribed to its kind plus
// the wildcard subscribers. Handlers run on the caller's goroutine.
func (b *Bus) Publish(kind string, e Event) {
	e.Kind = kind

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[kind])+len(b.subs[SubscribeAll]))
	for _, h := range b.subs[kind] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subs[SubscribeAll] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.Debug("publish event",
		zap.String("kind", kind),
		zap.String("registration_id", e.RegistrationID),
		zap.Int("subscribers", len(handlers)),
	)

	for _, h := range handlers {
		h(e)
	}
}
