// Package event provides the shared notification channel between the
// watcher, the caches and the browser. The dispatcher is an explicit,
// constructible object with a Close lifecycle rather than a package-level
// singleton, so tests and multiple browser instances stay isolated.
package event

import "sync"

// Type names a notification topic.
type Type string

const (
	// SourceChanged fires when the catalog database changes on disk.
	SourceChanged Type = "source-changed"
	// CacheCleared fires after the record cache is cleared.
	CacheCleared Type = "cache-cleared"
	// RecordInvalidated fires after a single key is invalidated.
	RecordInvalidated Type = "record-invalidated"
)

// Event is one notification. Payload is topic-specific (e.g. the changed
// path for SourceChanged).
type Event struct {
	Type    Type
	Payload any
}

// subscriberBuffer bounds each subscriber channel. Publish never blocks;
// a subscriber that falls this far behind loses events.
const subscriberBuffer = 16

type subscriber struct {
	ch    chan Event
	types map[Type]bool // nil = all topics
}

// Dispatcher fans events out to subscribers. Safe for concurrent use.
type Dispatcher struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

// NewDispatcher returns an open dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]*subscriber)}
}

// Subscribe registers interest in the given topics (none means all) and
// returns the event channel plus an unsubscribe function. The channel is
// closed on unsubscribe and on dispatcher Close.
func (d *Dispatcher) Subscribe(types ...Type) (<-chan Event, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	if d.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := d.nextID
	d.nextID++
	d.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if _, ok := d.subs[id]; ok {
				delete(d.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers e to every matching subscriber without blocking.
// Publishing on a closed dispatcher is a no-op.
func (d *Dispatcher) Publish(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	for _, sub := range d.subs {
		if sub.types != nil && !sub.types[e.Type] {
			continue
		}
		select {
		case sub.ch <- e:
		default: // slow subscriber, drop
		}
	}
}

// Close shuts the dispatcher down and closes all subscriber channels.
// Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for id, sub := range d.subs {
		delete(d.subs, id)
		close(sub.ch)
	}
}
