// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package handshake implements the Handshaker: a pipeline.Stage that pilots
// an XMPP stream from open to logged-in (Completed) or closed, negotiating
// StartTLS, SASL, and resource binding in the mandated order.
package handshake // import "lucidium.im/xmpp/handshake"

import (
	"context"
	"errors"
	"io"

	"mellium.im/sasl"
	"lucidium.im/xmpp/jid"
)

// State is the Handshaker's lifecycle state (spec §4.3).
type State int32

// Handshaker lifecycle states.
const (
	Initialized State = iota
	Started
	Negotiating
	Completed
	StreamClosing
	StreamClosed
	Disposed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Started:
		return "started"
	case Negotiating:
		return "negotiating"
	case Completed:
		return "completed"
	case StreamClosing:
		return "stream-closing"
	case StreamClosed:
		return "stream-closed"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Name is the conventional Pipeline slot a Handshaker occupies.
const Name = "handshaker"

// CredentialFunc returns the secret for the given SASL mechanism and key
// (e.g. "username", "password"), or ("", false) if it does not have one.
// It mirrors RFC 4422's credential-retrieval callback.
type CredentialFunc func(ctx context.Context, authnID, mechanism, key string) (string, bool)

// StaticPassword returns a CredentialFunc that always answers password for
// the "password" key, regardless of mechanism or identity.
func StaticPassword(password string) CredentialFunc {
	return func(_ context.Context, _, _, key string) (string, bool) {
		if key == "password" {
			return password, true
		}
		return "", false
	}
}

// TLSUpgrader performs the TLS handshake on the underlying transport once
// StartTLS negotiates; it is the Handshaker's sole cross-call into the
// transport collaborator described in spec §4.5.
type TLSUpgrader interface {
	StartTLS(ctx context.Context) error
}

// Config holds everything a Handshaker needs at construction. It is
// immutable once passed to New.
type Config struct {
	// Writer is the raw transport sink frames are written to. The
	// Handshaker owns the stream-level sub-protocol and talks to the wire
	// directly rather than through the Pipeline's generic item forwarding,
	// matching how stream negotiation writes its own frames in this corpus.
	Writer io.Writer

	// TLS performs the TLS handshake when StartTLS negotiates. May be nil if
	// the transport never offers StartTLS.
	TLS TLSUpgrader

	// Location is the server this Handshaker is opening a stream to.
	Location *jid.Jid

	// AuthnID is the authentication identity (the Jid whose credentials are
	// used to authenticate).
	AuthnID *jid.Jid

	// AuthzID is the authorization identity; absent (nil) in the common
	// case where a user authenticates as themselves.
	AuthzID *jid.Jid

	// Credential retrieves secrets for SASL mechanisms.
	Credential CredentialFunc

	// Mechanisms is the ordered SASL mechanism preference, strongest first.
	// Defaults to ScramSha256Plus, ScramSha256, ScramSha1Plus, ScramSha1,
	// Plain if empty (see DESIGN.md: mellium.im/sasl has no SHA-512 SCRAM).
	Mechanisms []sasl.Mechanism

	// Resource is a preset resource string for bind; empty lets the server
	// assign one.
	Resource string

	// Registering reserves the in-band registration parameter; its wire
	// exchange is not implemented (spec §9, open question).
	Registering bool
}

func defaultMechanisms() []sasl.Mechanism {
	return []sasl.Mechanism{
		sasl.ScramSha256Plus,
		sasl.ScramSha256,
		sasl.ScramSha1Plus,
		sasl.ScramSha1,
		sasl.Plain,
	}
}

// ErrNoMechanism is returned when none of the server's offered SASL
// mechanisms are in the configured preference list.
var ErrNoMechanism = errors.New("handshake: no matching SASL mechanism")

// ErrAuthenticationFailed records a SASL <failure/>.
var ErrAuthenticationFailed = errors.New("handshake: authentication failed")

// ErrBindFailed records a resource-binding result the Handshaker could not
// make sense of.
var ErrBindFailed = errors.New("handshake: resource binding failed")

// ErrTLSRefused records a StartTLS <failure/>.
var ErrTLSRefused = errors.New("handshake: server refused starttls")

// Errors is the set of error slots read once by the Session after the
// stream closes to determine the final handshake outcome (spec §4.3,
// "Handshake errors").
type Errors struct {
	// Server is set if the peer sent a stream <error/>.
	Server error
	// Client is set if the core sent a stream <error/>.
	Client error
	// Handshake is set on authentication failure, bind error, or a
	// malformed negotiation.
	Handshake error
}

// IsZero reports whether none of the three slots is set.
func (e Errors) IsZero() bool {
	return e.Server == nil && e.Client == nil && e.Handshake == nil
}
