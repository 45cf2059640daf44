// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"encoding/xml"

	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/streamerror"
)

// ValidatorName is the conventional name under which a Validator is
// installed, immediately before the "handshaker" slot in the inbound chain.
const ValidatorName = "validator"

// Validator is a Stage that inspects inbound documents. Any document whose
// root is a stanza (iq, message, or presence) must carry the stanza-client
// or stanza-server namespace; documents that fail this check are dropped and
// a validation error carrying streamerror.InvalidXMLErr is raised on the
// inbound error stream. All other documents (stream opens, <features/>,
// SASL and bind elements, …) are forwarded unchanged, since they are
// consumed or produced by other stages that know their shape.
type Validator struct {
	BaseStage
}

// NewValidator returns a Validator installed under ValidatorName.
func NewValidator() *Validator {
	return &Validator{BaseStage: NewBaseStage(ValidatorName)}
}

// OnRead implements Stage.
func (v *Validator) OnRead(_ context.Context, item Item) ([]Item, error) {
	start, ok := rootStart(item)
	if !ok {
		return []Item{item}, nil
	}
	switch start.Name.Local {
	case "iq", "message", "presence":
	default:
		return []Item{item}, nil
	}
	switch start.Name.Space {
	case ns.Client, ns.Server:
		return []Item{item}, nil
	default:
		return nil, streamerror.InvalidXMLErr
	}
}

// rootStart extracts the root xml.StartElement of an Item, if it carries
// one. Items with a StartElement method (such as *Document) expose their
// root through it; an item that is already a bare xml.StartElement (as used
// by unit tests and simple stages) is returned directly.
func rootStart(item Item) (xml.StartElement, bool) {
	switch v := item.(type) {
	case xml.StartElement:
		return v, true
	case interface{ StartElement() xml.StartElement }:
		return v.StartElement(), true
	default:
		return xml.StartElement{}, false
	}
}
