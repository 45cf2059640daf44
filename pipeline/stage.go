// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline

import "context"

// Item is a single unit flowing through a Pipeline: a complete XML document
// (a stream-open, a stanza, a <features/> element, …) or an opaque value a
// stage chooses to forward to its neighbors.
type Item interface{}

// Stage is a single named link in a Pipeline's processing chain. A stage may
// forward zero, one, or many items from each hook; the common case forwards
// exactly the item it was given, unchanged.
//
// OnRead is invoked, in chain order, for items moving from the transport
// towards the application. OnWrite is invoked, in reverse chain order, for
// items moving from the application towards the transport. OnAdded and
// OnRemoved fire when the stage is spliced into or out of a running
// Pipeline; a stage that owns background resources (timers, sub-protocol
// state) should acquire them in OnAdded and release them in OnRemoved.
type Stage interface {
	Name() string
	OnRead(ctx context.Context, item Item) ([]Item, error)
	OnWrite(ctx context.Context, item Item) ([]Item, error)
	OnAdded(ctx context.Context)
	OnRemoved(ctx context.Context)
}

// BaseStage is a pass-through Stage implementation meant to be embedded in
// concrete stages. Embedders get forward-unchanged behavior for any hook
// they don't override and only need to supply a name.
type BaseStage struct {
	StageName string
}

// NewBaseStage returns a BaseStage with the given name.
func NewBaseStage(name string) BaseStage {
	return BaseStage{StageName: name}
}

// Name returns the stage's name.
func (b BaseStage) Name() string { return b.StageName }

// OnRead forwards item unchanged.
func (b BaseStage) OnRead(_ context.Context, item Item) ([]Item, error) {
	return []Item{item}, nil
}

// OnWrite forwards item unchanged.
func (b BaseStage) OnWrite(_ context.Context, item Item) ([]Item, error) {
	return []Item{item}, nil
}

// OnAdded does nothing.
func (b BaseStage) OnAdded(context.Context) {}

// OnRemoved does nothing.
func (b BaseStage) OnRemoved(context.Context) {}
