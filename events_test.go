// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"errors"
	"testing"
	"time"
)

func TestEventBusDeliversToAllSubscribers(t *testing.T) {
	b := newEventBus()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(StateChanged{From: Disconnected, To: Connecting})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case ev := <-ch:
			sc, ok := ev.(StateChanged)
			if !ok || sc.To != Connecting {
				t.Fatalf("unexpected event: %#v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEventBusCompleteClosesSubscribers(t *testing.T) {
	b := newEventBus()
	ch := b.Subscribe()
	b.Complete()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	// A second Complete must not panic (closing a closed channel).
	b.Complete()
}

func TestEventBusSubscribeAfterCompleteReturnsClosedChannel(t *testing.T) {
	b := newEventBus()
	b.Complete()
	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Fatal("expected an already-closed channel")
	}
}

func TestEventBusPublishAfterCompleteIsNoop(t *testing.T) {
	b := newEventBus()
	b.Complete()
	b.Publish(ExceptionCaught{Err: errors.New("boom")})
}

func TestEventBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := newEventBus()
	ch := b.Subscribe()
	for i := 0; i < b.capacity+5; i++ {
		b.Publish(ExceptionCaught{Err: errors.New("x")})
	}
	// Draining less than everything proves Publish never blocked above.
	<-ch
}
