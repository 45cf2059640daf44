// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"io"
	"log"

	"golang.org/x/text/language"
	"mellium.im/sasl"
	"lucidium.im/xmpp/handshake"
	"lucidium.im/xmpp/jid"
)

// Config collects everything a Session needs across the lifetime of a
// login, analogous to the teacher's own Config plus the dialer-style option
// fields historically carried by dial.go.
type Config struct {
	// Lang is the default language for streams constructed using this
	// config.
	Lang language.Tag

	// Location is the server the Session connects to.
	Location *jid.Jid

	// Origin is the identity the Session authenticates as.
	Origin *jid.Jid

	// Identity is an authorization identity distinct from Origin, used when
	// a user wants to act on behalf of another. Normally left empty, in
	// which case Origin's localpart is used.
	Identity string

	// Credential retrieves SASL secrets. See handshake.StaticPassword for a
	// convenience constructor covering the common password-only case.
	Credential handshake.CredentialFunc

	// Resource is a preset resource to request during binding; empty lets
	// the server assign one.
	Resource string

	// Registering reserves the in-band registration parameter (spec §9; the
	// wire exchange itself is not implemented).
	Registering bool

	// Mechanisms overrides the default SASL mechanism preference order.
	Mechanisms []sasl.Mechanism

	// Logger receives diagnostic output. Defaults to a discarding logger,
	// mirroring how conn/options.go configures a debug logger for the
	// underlying connection only when one is explicitly requested.
	Logger *log.Logger
}

func (c *Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard, "", 0)
}
