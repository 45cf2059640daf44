// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package discover resolves an XMPP domain to one or more connection hints
// using DNS SRV/TXT records and XEP-0156 host-meta documents. It is an
// external-collaborator contract: apart from the Dial convenience helper,
// nothing in this package opens a connection itself, it only tells a caller
// where and how to dial one.
package discover // import "lucidium.im/xmpp/discover"

import (
	"errors"
	"net"
)

// Protocol is the transport a Hint describes.
type Protocol int

// Protocols a Hint may describe.
const (
	TCP Protocol = iota
	WebSocket
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case WebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// TLSMode describes when a TCP Hint expects TLS to start.
type TLSMode int

// TLS modes a TCP Hint may specify.
const (
	// StartTLS means the connection begins in the clear and negotiates TLS
	// via the StartTLS stream feature.
	StartTLS TLSMode = iota
	// Direct means TLS wraps the connection immediately, before any XMPP
	// stream is opened.
	Direct
)

// Hint is a single candidate way to reach an XMPP service.
type Hint struct {
	Protocol Protocol
	Host     string
	Port     uint16
	// Path is set for WebSocket hints (e.g. "/ws") and ignored otherwise.
	Path string
	// TLS is meaningful only when Protocol is TCP.
	TLS TLSMode
}

// Addr formats the Hint's host and port the way net.Dial expects.
func (h Hint) Addr() string {
	return net.JoinHostPort(h.Host, portString(h.Port))
}

func portString(p uint16) string {
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for p > 0 {
		i--
		buf[i] = digits[p%10]
		p /= 10
	}
	return string(buf[i:])
}

// ErrNoServiceAtAddress is returned when a domain's DNS records explicitly
// decline to offer the requested service (RFC 6120 §3.2.1's Target "." SRV
// record convention).
var ErrNoServiceAtAddress = errors.New("discover: no service offered at this address")

// LookupPort returns the default port for the given network and service
// using net.LookupPort, falling back to a well-known XMPP default when the
// system lookup does not recognize the service name.
func LookupPort(network, service string) (uint16, error) {
	p, err := net.LookupPort(network, service)
	if err == nil {
		return uint16(p), nil
	}
	switch service {
	case "xmpp-client":
		return 5222, nil
	case "xmpps-client":
		return 5223, nil
	case "xmpp-server":
		return 5269, nil
	case "xmpp-bosh":
		return 5280, nil
	}
	return 0, err
}
