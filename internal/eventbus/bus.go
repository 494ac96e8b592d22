package eventbus

import (
	"sync"
	"sync/atomic"
)

// Bus is a lightweight, in-memory fanout used to decouple document writes
// from the handlers reacting to them.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Guaranteed delivery is explicitly out of scope: a dropped event means a
// missed notification, mirroring the hosting platform's at-most-once
// trigger behavior under pressure.
type Bus[T any] interface {
	Publish(e T)
	Subscribe(buffer int) (ch <-chan T, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New[T any]() Bus[T] {
	return &memBus[T]{subs: map[uint64]chan T{}}
}

type memBus[T any] struct {
	mu   sync.RWMutex
	subs map[uint64]chan T
	seq  atomic.Uint64
}

func (b *memBus[T]) Publish(e T) {
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan T, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan T, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
