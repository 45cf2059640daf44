// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline

import "sync"

// broadcaster is a multi-producer, multi-subscriber fan-out of values of
// type T. Values published before a subscriber registers are not replayed.
// Closing the broadcaster completes every current and future subscriber
// channel.
type broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

// Subscribe registers a new subscriber and returns a receive-only channel
// that is closed when the broadcaster is closed.
func (b *broadcaster[T]) Subscribe() <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, 16)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *broadcaster[T]) Unsubscribe(ch <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub == (chan T)(nil) {
			continue
		}
		var iface <-chan T = sub
		if iface == ch {
			delete(b.subs, sub)
			close(sub)
			return
		}
	}
}

// publish delivers v to every current subscriber. Slow subscribers that
// would block are skipped for this value rather than stalling the publisher.
func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// close completes every subscriber channel; subsequent publishes are no-ops.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
