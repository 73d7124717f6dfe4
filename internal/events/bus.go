package events

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Listener receives published events. Listeners run synchronously on the publishing goroutine.
type Listener func(Event)

// Subscription identifies a registered listener so it can be removed.
type Subscription struct {
	name Name
	id   uint64
}

// Name returns the event name the subscription listens to.
func (s Subscription) Name() Name { return s.name }

type registration struct {
	id       uint64
	listener Listener
}

// Bus delivers events to the listeners registered for their name, in publish order.
//
// A listener that panics is logged and skipped: the remaining listeners still receive the
// event and Publish returns normally.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Name][]registration
	nextID    uint64
	logger    *slog.Logger
}

// NewBus creates an empty bus. A nil logger discards bus diagnostics.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{
		listeners: make(map[Name][]registration),
		logger:    logger,
	}
}

// Subscribe registers a listener for the named event.
//
// Subscriptions are not scoped to a run: callers must Unsubscribe when they are done.
func (b *Bus) Subscribe(name Name, listener Listener) (Subscription, error) {
	if !name.Valid() {
		return Subscription{}, fmt.Errorf("unknown event name %q", name)
	}
	if listener == nil {
		return Subscription{}, fmt.Errorf("listener is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := Subscription{name: name, id: b.nextID}
	b.listeners[name] = append(b.listeners[name], registration{id: sub.id, listener: listener})
	return sub, nil
}

// SubscribeAll registers the same listener for every event name.
func (b *Bus) SubscribeAll(listener Listener) ([]Subscription, error) {
	subs := make([]Subscription, 0, len(Names))
	for _, name := range Names {
		sub, err := b.Subscribe(name, listener)
		if err != nil {
			b.Unsubscribe(subs...)
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Unsubscribe removes the given subscriptions. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(subs ...Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range subs {
		regs := b.listeners[sub.name]
		for i, reg := range regs {
			if reg.id == sub.id {
				b.listeners[sub.name] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}
	}
}

// ListenerCount returns the number of listeners registered for name.
func (b *Bus) ListenerCount(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// Publish delivers the event to every listener registered for its name.
// Publishing an event nobody listens to is a no-op.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := make([]registration, len(b.listeners[event.Name]))
	copy(regs, b.listeners[event.Name])
	b.mu.RUnlock()

	for _, reg := range regs {
		b.deliver(reg, event)
	}
}

func (b *Bus) deliver(reg registration, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				slog.String("event", string(event.Name)),
				slog.String("certificate_id", event.Detail.CertificateID),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	reg.listener(event)
}
