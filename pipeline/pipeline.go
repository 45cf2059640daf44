// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package pipeline implements an ordered, mutable-by-name chain of XML
// processing stages with independent inbound and outbound directions.
//
// A Pipeline is the mechanism by which a Session drives documents between a
// transport and its handshake/application logic: stages are spliced in and
// out by name (most notably the "handshaker" slot, which starts out as a
// pass-through and is swapped for a live negotiation engine during login),
// and each direction is processed strictly in order with backpressure
// supplied by Go channels.
package pipeline // import "lucidium.im/xmpp/pipeline"

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of a Pipeline.
type State int32

// Pipeline lifecycle states. Disposed is terminal; the others may cycle
// between Running and Stopped any number of times.
const (
	Initialized State = iota
	Running
	Stopped
	Disposed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ErrDisposed is returned by any mutating or dispatch operation performed
// after the Pipeline has been disposed.
var ErrDisposed = errors.New("pipeline: disposed")

// ErrNotFound is returned by operations that reference a stage name that is
// not present in the chain.
var ErrNotFound = errors.New("pipeline: no such stage")

// ErrExists is returned by add operations when the given name is already in
// use.
var ErrExists = errors.New("pipeline: stage name already in use")

const queueDepth = 64

// Pipeline is an ordered chain of named Stages with independent, serialized
// inbound and outbound directions. The zero value is not usable; construct
// one with New.
type Pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc

	structMu sync.Mutex // serializes add/replace/remove against both directions
	stages   []*stageEntry

	stateMu sync.Mutex
	cond    *sync.Cond
	state   State
	// loopsStarted records whether Start has launched the dispatch loops.
	loopsStarted bool

	inboundQueue  chan Item
	outboundQueue chan Item

	inbound     *broadcaster[Item]
	outbound    *broadcaster[Item]
	inboundErr  *broadcaster[error]
	outboundErr *broadcaster[error]
	stateCh     *broadcaster[State]

	wg sync.WaitGroup
}

type stageEntry struct {
	name  string
	stage Stage
}

// New constructs an empty, Initialized Pipeline.
func New() *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		ctx:           ctx,
		cancel:        cancel,
		state:         Initialized,
		inboundQueue:  make(chan Item, queueDepth),
		outboundQueue: make(chan Item, queueDepth),
		inbound:       newBroadcaster[Item](),
		outbound:      newBroadcaster[Item](),
		inboundErr:    newBroadcaster[error](),
		outboundErr:   newBroadcaster[error](),
		stateCh:       newBroadcaster[State](),
	}
	p.cond = sync.NewCond(&p.stateMu)
	return p
}

// State returns the Pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

// StateChanges returns a channel of state transitions, completed when the
// Pipeline is disposed.
func (p *Pipeline) StateChanges() <-chan State { return p.stateCh.Subscribe() }

// Inbound returns the stream of items that have passed through every stage
// in the inbound direction.
func (p *Pipeline) Inbound() <-chan Item { return p.inbound.Subscribe() }

// Outbound returns the stream of items that have passed through every stage
// in the outbound direction; a transport subscribes here to learn what to
// serialize onto the wire.
func (p *Pipeline) Outbound() <-chan Item { return p.outbound.Subscribe() }

// InboundErr returns the stream of errors raised by stage hooks while
// processing inbound items.
func (p *Pipeline) InboundErr() <-chan error { return p.inboundErr.Subscribe() }

// OutboundErr returns the stream of errors raised by stage hooks while
// processing outbound items.
func (p *Pipeline) OutboundErr() <-chan error { return p.outboundErr.Subscribe() }

func (p *Pipeline) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
	p.cond.Broadcast()
	p.stateCh.publish(s)
}

// Start moves the Pipeline from Initialized or Stopped to Running, launching
// (on first call) the inbound and outbound dispatch loops.
func (p *Pipeline) Start() error {
	p.stateMu.Lock()
	switch p.state {
	case Disposed:
		p.stateMu.Unlock()
		return ErrDisposed
	case Running:
		p.stateMu.Unlock()
		return nil
	}
	first := !p.loopsStarted
	p.loopsStarted = true
	p.state = Running
	p.stateMu.Unlock()
	p.cond.Broadcast()
	p.stateCh.publish(Running)

	if first {
		p.wg.Add(2)
		go p.loop(p.inboundQueue, p.dispatchRead)
		go p.loop(p.outboundQueue, p.dispatchWrite)
	}
	return nil
}

// StopNow transitions the Pipeline to Stopped. Items already enqueued via
// Read/Write remain queued (subject to the queue's capacity) and are
// processed once Start is called again; StopNow does not drain or discard
// them.
func (p *Pipeline) StopNow() error {
	p.stateMu.Lock()
	if p.state == Disposed {
		p.stateMu.Unlock()
		return ErrDisposed
	}
	p.state = Stopped
	p.stateMu.Unlock()
	p.cond.Broadcast()
	p.stateCh.publish(Stopped)
	return nil
}

// Dispose terminally shuts down the Pipeline: running stages are notified via
// OnRemoved, every observable stream is completed, and all subsequent
// operations return ErrDisposed.
func (p *Pipeline) Dispose() error {
	p.stateMu.Lock()
	if p.state == Disposed {
		p.stateMu.Unlock()
		return nil
	}
	p.state = Disposed
	p.stateMu.Unlock()
	p.cond.Broadcast()

	p.structMu.Lock()
	stages := p.stages
	p.stages = nil
	p.structMu.Unlock()
	for _, e := range stages {
		e.stage.OnRemoved(p.ctx)
	}

	p.cancel()
	p.wg.Wait()

	p.stateCh.publish(Disposed)
	p.inbound.close()
	p.outbound.close()
	p.inboundErr.close()
	p.outboundErr.close()
	p.stateCh.close()
	return nil
}

// waitRunning blocks until the Pipeline is Running or Disposed, returning
// true if it is Running.
func (p *Pipeline) waitRunning() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	for p.state != Running && p.state != Disposed {
		p.cond.Wait()
	}
	return p.state == Running
}

func (p *Pipeline) loop(queue chan Item, dispatch func(Item)) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case item := <-queue:
			if !p.waitRunning() {
				return
			}
			dispatch(item)
		}
	}
}

// Read enqueues item at the inbound (transport-facing) end of the chain; it
// is processed head-to-tail and surviving items appear on Inbound.
func (p *Pipeline) Read(item Item) error {
	if p.State() == Disposed {
		return ErrDisposed
	}
	select {
	case p.inboundQueue <- item:
		return nil
	case <-p.ctx.Done():
		return ErrDisposed
	}
}

// Write enqueues item at the outbound (application-facing) end of the chain;
// it is processed tail-to-head and surviving items appear on Outbound.
func (p *Pipeline) Write(item Item) error {
	if p.State() == Disposed {
		return ErrDisposed
	}
	select {
	case p.outboundQueue <- item:
		return nil
	case <-p.ctx.Done():
		return ErrDisposed
	}
}

func (p *Pipeline) snapshot() []*stageEntry {
	p.structMu.Lock()
	defer p.structMu.Unlock()
	out := make([]*stageEntry, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Pipeline) dispatchRead(item Item) {
	items := []Item{item}
	for _, e := range p.snapshot() {
		if len(items) == 0 {
			return
		}
		var next []Item
		for _, it := range items {
			forwarded, err := e.stage.OnRead(p.ctx, it)
			if err != nil {
				p.inboundErr.publish(fmt.Errorf("pipeline: stage %q: %w", e.name, err))
				continue
			}
			next = append(next, forwarded...)
		}
		items = next
	}
	for _, it := range items {
		p.inbound.publish(it)
	}
}

func (p *Pipeline) dispatchWrite(item Item) {
	items := []Item{item}
	stages := p.snapshot()
	for i := len(stages) - 1; i >= 0; i-- {
		if len(items) == 0 {
			return
		}
		e := stages[i]
		var next []Item
		for _, it := range items {
			forwarded, err := e.stage.OnWrite(p.ctx, it)
			if err != nil {
				p.outboundErr.publish(fmt.Errorf("pipeline: stage %q: %w", e.name, err))
				continue
			}
			next = append(next, forwarded...)
		}
		items = next
	}
	for _, it := range items {
		p.outbound.publish(it)
	}
}

// Get returns the stage registered under name, or ErrNotFound.
func (p *Pipeline) Get(name string) (Stage, error) {
	p.structMu.Lock()
	defer p.structMu.Unlock()
	for _, e := range p.stages {
		if e.name == name {
			return e.stage, nil
		}
	}
	return nil, ErrNotFound
}

func (p *Pipeline) indexOf(name string) int {
	for i, e := range p.stages {
		if e.name == name {
			return i
		}
	}
	return -1
}

// AddFirst splices stage in at the head of the chain.
func (p *Pipeline) AddFirst(stage Stage) error {
	return p.insertAt(stage, func(int) int { return 0 })
}

// AddLast splices stage in at the tail of the chain.
func (p *Pipeline) AddLast(stage Stage) error {
	return p.insertAt(stage, func(n int) int { return n })
}

// AddBefore splices stage in immediately before the stage named name.
func (p *Pipeline) AddBefore(name string, stage Stage) error {
	return p.insertAt(stage, func(int) int { return -1 }, name)
}

// AddAfter splices stage in immediately after the stage named name.
func (p *Pipeline) AddAfter(name string, stage Stage) error {
	return p.insertAt(stage, func(int) int { return -1 }, name, true)
}

func (p *Pipeline) insertAt(stage Stage, fallback func(int) int, rel ...interface{}) error {
	p.structMu.Lock()
	defer p.structMu.Unlock()
	if p.isDisposedLocked() {
		return ErrDisposed
	}
	if p.indexOf(stage.Name()) >= 0 {
		return fmt.Errorf("%w: %q", ErrExists, stage.Name())
	}

	idx := fallback(len(p.stages))
	if len(rel) > 0 {
		name := rel[0].(string)
		pos := p.indexOf(name)
		if pos < 0 {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if len(rel) > 1 && rel[1] == true {
			idx = pos + 1
		} else {
			idx = pos
		}
	}

	entry := &stageEntry{name: stage.Name(), stage: stage}
	stages := make([]*stageEntry, 0, len(p.stages)+1)
	stages = append(stages, p.stages[:idx]...)
	stages = append(stages, entry)
	stages = append(stages, p.stages[idx:]...)
	p.stages = stages
	stage.OnAdded(p.ctx)
	return nil
}

func (p *Pipeline) isDisposedLocked() bool {
	return p.State() == Disposed
}

// Replace atomically swaps the stage registered under name for stage,
// calling OnRemoved on the old stage and OnAdded on the new one. This is how
// the "handshaker" slot is rebound from a pass-through to a live Handshaker
// and back.
func (p *Pipeline) Replace(name string, stage Stage) error {
	p.structMu.Lock()
	defer p.structMu.Unlock()
	if p.isDisposedLocked() {
		return ErrDisposed
	}
	idx := p.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	old := p.stages[idx]
	stages := make([]*stageEntry, len(p.stages))
	copy(stages, p.stages)
	stages[idx] = &stageEntry{name: name, stage: stage}
	p.stages = stages
	old.stage.OnRemoved(p.ctx)
	stage.OnAdded(p.ctx)
	return nil
}

// Remove splices the stage named name out of the chain, calling OnRemoved.
func (p *Pipeline) Remove(name string) error {
	p.structMu.Lock()
	defer p.structMu.Unlock()
	if p.isDisposedLocked() {
		return ErrDisposed
	}
	idx := p.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	old := p.stages[idx]
	stages := make([]*stageEntry, 0, len(p.stages)-1)
	stages = append(stages, p.stages[:idx]...)
	stages = append(stages, p.stages[idx+1:]...)
	p.stages = stages
	old.stage.OnRemoved(p.ctx)
	return nil
}
