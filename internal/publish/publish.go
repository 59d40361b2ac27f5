// Package publish fans out store.Snapshot values to subscribers
// (C6). It generalizes the teacher's per-connection SSEStream
// write-deadline idiom (server/sse.go): where the teacher bounds a
// blocking HTTP write with a deadline, Publisher bounds a channel
// send with a non-blocking, coalescing, drop-oldest 1-slot mailbox —
// the right shape once delivery fans out to more than one HTTP
// response (WS clients, in-process test subscribers) per spec.md §5.
package publish

import (
	"sync"

	"github.com/argus-dev/argus/internal/store"
)

// Publisher fans out snapshots to subscribers. The zero value is not
// usable; construct with New.
type Publisher struct {
	mu   sync.Mutex
	subs map[int]chan store.Snapshot
	next int
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{subs: make(map[int]chan store.Snapshot)}
}

// Subscribe registers a new subscriber and returns its receive
// channel (capacity 1) plus an unsubscribe function. Calling the
// unsubscribe function more than once is safe.
func (p *Publisher) Subscribe() (<-chan store.Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan store.Snapshot, 1)
	p.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers snap to every subscriber. A subscriber whose
// mailbox is already full has its stale pending snapshot drained and
// replaced, so a slow consumer only ever sees the latest value — it
// can never stall the writer.
func (p *Publisher) Publish(snap store.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Close closes every subscriber channel. Used on daemon shutdown.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}

// SubscriberCount reports how many subscribers are currently
// registered, used by tests and diagnostics.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
