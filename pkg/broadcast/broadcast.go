package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/mirelletran/fangallery-backend/pkg/logger"
)

// Event describes a content change announced to subscribers.
type Event struct {
	// Kind is the logical channel, e.g. "content" or "banners".
	Kind string
	// RecordID is set for single-record mutations, empty for bulk changes.
	RecordID string
	// Origin identifies the instance that produced the event. Bridged
	// events keep the remote origin so loops can be detected upstream.
	Origin string
}

// Handler receives events. Delivery is synchronous on the publisher's
// goroutine, so handlers must not block on long work.
type Handler func(ctx context.Context, evt Event)

// Broadcaster fans out change events to registered subscribers in
// subscription order. Subscribers registered during delivery of an event
// do not receive that event.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	logg   *logger.Logger
}

type subscription struct {
	id      int
	handler Handler
}

// New returns an empty broadcaster. The logger may be nil.
func New(logg *logger.Logger) *Broadcaster {
	return &Broadcaster{logg: logg}
}

// Subscribe registers a handler and returns an unsubscribe func. Calling
// the returned func more than once is a no-op.
func (b *Broadcaster) Subscribe(handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish delivers the event to every current subscriber in registration
// order. A handler that unsubscribes itself mid-delivery still finishes the
// current event; the snapshot taken at publish time is what gets served.
// A panicking handler is recovered so the remaining subscribers still see
// the event.
func (b *Broadcaster) Publish(ctx context.Context, evt Event) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	if b.logg != nil {
		b.logg.Info(b.logg.WithFields(ctx, map[string]any{
			"kind":        evt.Kind,
			"record_id":   evt.RecordID,
			"subscribers": len(snapshot),
		}), "broadcasting change event")
	}
	for _, sub := range snapshot {
		b.deliver(ctx, sub, evt)
	}
}

func (b *Broadcaster) deliver(ctx context.Context, sub subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil && b.logg != nil {
			b.logg.Error(b.logg.WithFields(ctx, map[string]any{
				"kind":          evt.Kind,
				"subscriber_id": sub.id,
			}), "subscriber panicked during delivery", fmt.Errorf("%v", r))
		}
	}()
	sub.handler(ctx, evt)
}

// Len reports the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
