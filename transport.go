// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"

	"lucidium.im/xmpp/pipeline"
)

// Transport is the collaborator a Session requires to get bytes on and off
// the wire (spec §4.5). Multiple transports (WebSocket framed per RFC 7395,
// plain TCP framed per RFC 6120) can satisfy this contract; the choice is
// configuration, not something the core special-cases.
type Transport interface {
	// Open establishes the byte layer. Once open, the transport calls
	// Session.Feed for every inbound XML document it parses off the wire
	// until Close or an abnormal closure.
	Open(ctx context.Context) error

	// Close tears down the byte layer.
	Close(ctx context.Context) error

	// StartTLS performs the TLS handshake on the already-open connection.
	// Called at most once, when the StartTLS stream feature negotiates.
	// Transports that are always secure (WebSocket over TLS) may return
	// nil unconditionally.
	StartTLS(ctx context.Context) error

	// Send serializes and transmits a single outbound pipeline.Item. The
	// Session calls this for every item the Pipeline's outbound observable
	// produces, in order.
	Send(item pipeline.Item) error
}

// handshakeTLS adapts a Transport to handshake.TLSUpgrader so it can be
// wired directly into a handshake.Config without the handshake package
// importing this one.
type handshakeTLS struct {
	t Transport
}

func (h handshakeTLS) StartTLS(ctx context.Context) error {
	return h.t.StartTLS(ctx)
}
