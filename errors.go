// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"errors"
	"fmt"

	"lucidium.im/xmpp/handshake"
	"lucidium.im/xmpp/stanza"
	"lucidium.im/xmpp/streamerror"
)

// ErrStateViolation is returned when a caller invokes an operation that is
// illegal for the Session's current state (spec §7, "State-violation").
// It is reported synchronously and is never retried automatically.
type ErrStateViolation struct {
	Op   string
	From SessionState
}

func (e ErrStateViolation) Error() string {
	return fmt.Sprintf("xmpp: %s is invalid in state %s", e.Op, e.From)
}

// ErrConnectionFailed wraps a transport error encountered while opening or
// maintaining a connection (spec §7, "Connection-failed"). login surfaces
// this directly; the Session transitions to Disconnected.
type ErrConnectionFailed struct {
	Err error
}

func (e ErrConnectionFailed) Error() string {
	return fmt.Sprintf("xmpp: connection failed: %v", e.Err)
}

func (e ErrConnectionFailed) Unwrap() error { return e.Err }

// ErrHandshakeFailed wraps the handshake.Errors slot surfaced when login
// fails after the transport is open (spec §7, "Handshake-failed"):
// authentication failure, bind rejection, unsupported-feature negotiation,
// or malformed negotiation XML.
type ErrHandshakeFailed struct {
	Errors handshake.Errors
}

func (e ErrHandshakeFailed) Error() string {
	switch {
	case e.Errors.Handshake != nil:
		return fmt.Sprintf("xmpp: handshake failed: %v", e.Errors.Handshake)
	case e.Errors.Server != nil:
		return fmt.Sprintf("xmpp: handshake failed: server sent %v", e.Errors.Server)
	case e.Errors.Client != nil:
		return fmt.Sprintf("xmpp: handshake failed: %v", e.Errors.Client)
	default:
		return "xmpp: handshake failed"
	}
}

func (e ErrHandshakeFailed) Unwrap() error {
	switch {
	case e.Errors.Handshake != nil:
		return e.Errors.Handshake
	case e.Errors.Server != nil:
		return e.Errors.Server
	default:
		return e.Errors.Client
	}
}

// ErrDisposed is returned by any mutating operation on a disposed Session.
var ErrDisposed = fmt.Errorf("xmpp: session is disposed")

// asStanzaError reports whether err is (or wraps) a stanza.Error, the form
// send_iq_query's response future errors with when the peer replies with an
// iq of type error (spec §7, "Stanza-error").
func asStanzaError(err error) (stanza.Error, bool) {
	var se stanza.Error
	ok := errors.As(err, &se)
	return se, ok
}

// asStreamError reports whether err is (or wraps) a streamerror.Error, used
// to decide whether an inbound document closes the stream (spec §7,
// "Stream-error").
func asStreamError(err error) (streamerror.Error, bool) {
	var se streamerror.Error
	ok := errors.As(err, &se)
	return se, ok
}
