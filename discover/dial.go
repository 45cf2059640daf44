// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"context"
	"net"
)

// Dial resolves domain to connection Hints via LookupService, then dials
// the first TCP hint that succeeds, in the order LookupService returned
// them (direct-TLS candidates before StartTLS candidates). It is a
// convenience on top of LookupService and net.Dialer for callers that just
// want a connection, not the full hint set.
func Dial(ctx context.Context, resolver *net.Resolver, domain, service string) (net.Conn, Hint, error) {
	hints, err := LookupService(ctx, resolver, domain, service)
	if err != nil {
		return nil, Hint{}, err
	}
	if len(hints) == 0 {
		port, perr := LookupPort("tcp", "xmpp-"+service)
		if perr != nil {
			return nil, Hint{}, perr
		}
		hints = []Hint{{Protocol: TCP, Host: domain, Port: port, TLS: StartTLS}}
	}

	var dialer net.Dialer
	var lastErr error
	for _, h := range hints {
		if h.Protocol != TCP {
			continue
		}
		conn, err := dialer.DialContext(ctx, "tcp", h.Addr())
		if err != nil {
			lastErr = err
			continue
		}
		return conn, h, nil
	}
	if lastErr == nil {
		lastErr = ErrNoServiceAtAddress
	}
	return nil, Hint{}, lastErr
}
