package events

import (
	"log/slog"
	"sync"
)

// Bus fans events out to subscribers by event name. Handlers registered under
// EventAny additionally receive every published event. A panicking handler is
// recovered and logged so one faulty subscriber cannot break delivery to the
// others.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[EventType]map[uint64]*Subscription
	logger *slog.Logger
}

// Subscription identifies one registered handler. Unsubscribe through Bus.Off.
type Subscription struct {
	id      uint64
	name    EventType
	handler Handler
	once    bool
	fired   bool
}

// NewBus creates an empty bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[EventType]map[uint64]*Subscription),
		logger: logger,
	}
}

// On registers a handler for the named event and returns its subscription.
func (b *Bus) On(name EventType, handler Handler) *Subscription {
	return b.subscribe(name, handler, false)
}

// Once registers a handler that auto-unsubscribes after its first invocation.
func (b *Bus) Once(name EventType, handler Handler) *Subscription {
	return b.subscribe(name, handler, true)
}

// Off removes a subscription. Removing an already-removed subscription is a no-op.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.name]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(b.subs, sub.name)
		}
	}
}

// Emit delivers the event to all handlers of its type, then to the catch-all
// set. Delivery order across subscribers is not guaranteed.
func (b *Bus) Emit(event Event) {
	b.dispatch(event.Type, event)
	if event.Type != EventAny {
		b.dispatch(EventAny, event)
	}
}

func (b *Bus) subscribe(name EventType, handler Handler, once bool) *Subscription {
	if handler == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, name: name, handler: handler, once: once}
	set, ok := b.subs[name]
	if !ok {
		set = make(map[uint64]*Subscription)
		b.subs[name] = set
	}
	set[sub.id] = sub
	return sub
}

func (b *Bus) dispatch(name EventType, event Event) {
	b.mu.Lock()
	set := b.subs[name]
	targets := make([]*Subscription, 0, len(set))
	for _, sub := range set {
		if sub.once {
			if sub.fired {
				continue
			}
			sub.fired = true
			delete(set, sub.id)
		}
		targets = append(targets, sub)
	}
	if len(set) == 0 {
		delete(b.subs, name)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(event)
}
