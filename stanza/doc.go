// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains functionality for dealing with XMPP stanzas and
// stanza level errors.
//
// Stanzas (Message, Presence, and IQ) are the basic building blocks of an XMPP
// stream. Messages are used to send data that is fire-and-forget such as chat
// messages. Presence is a publish-subscribe mechanism and is used to
// broadcast availability on the network. IQ (Info-Query) is a request
// response mechanism for data that requires a response.
//
// Stanzas created using the structs in this package are not guaranteed to be
// valid or enforce specific stanza semantics; for instance, nothing stops the
// caller from building an IQ without a unique ID, which is illegal in XMPP.
// Packages that require correct stanza semantics, such as this module's root
// xmpp package (which holds the Session), are expected to enforce stanza semantics when encoding
// stanzas to a stream.
//
// The Stanza type, in contrast to IQ/Message/Presence, is a read-only view
// over an already-received document: it exposes just enough metadata (kind,
// id, addressing, and the first child element's name) for a plugin to decide
// whether and how to handle it, without requiring the plugin to know the
// full payload shape up front.
package stanza // import "lucidium.im/xmpp/stanza"

// NSClient and NSServer are the two stanza namespaces defined by RFC 6120.
const (
	NSClient = "jabber:client"
	NSServer = "jabber:server"
)
