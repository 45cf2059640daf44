// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the xmpp package and
// other internal packages.
package ns // import "lucidium.im/xmpp/internal/ns"

// List of commonly used namespaces.
const (
	Bind     = "urn:ietf:params:xml:ns:xmpp-bind"
	SASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
	XML      = "http://www.w3.org/XML/1998/namespace"
	Stream   = "http://etherx.jabber.org/streams"
	Client   = "jabber:client"
	Server   = "jabber:server"
	Framing  = "urn:ietf:params:xml:ns:xmpp-framing"

	DiscoInfo  = "http://jabber.org/protocol/disco#info"
	DiscoItems = "http://jabber.org/protocol/disco#items"
	Version    = "jabber:iq:version"

	AltConnWebsocket = "urn:xmpp:alt-connections:websocket"
	AltConnBOSH      = "urn:xmpp:alt-connections:xbosh"

	Stanza = "urn:ietf:params:xml:ns:xmpp-stanzas"
)
