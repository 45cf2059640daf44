// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"context"
	"errors"
	"net"
)

// LookupService resolves SRV records for an XMPP service on domain, trying
// direct-TLS first (per XEP-0368's "xmpps" convention) and falling back to
// StartTLS. service selects "client" or "server" and determines which SRV
// prefixes are queried.
//
// If the SRV lookup for a tried prefix returns a single record whose Target
// is the root domain ("."), that result is authoritative: the server has
// declared the service unavailable (RFC 6120 §3.2.1) and ErrNoServiceAtAddress
// is returned immediately rather than falling through to the next prefix.
func LookupService(ctx context.Context, resolver *net.Resolver, domain, service string) ([]Hint, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	prefixes := []struct {
		service string
		tls     TLSMode
	}{
		{"xmpps-" + service, Direct},
		{"xmpp-" + service, StartTLS},
	}

	var hints []Hint
	for _, p := range prefixes {
		_, addrs, err := resolver.LookupSRV(ctx, p.service, "tcp", domain)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				continue
			}
			return hints, err
		}
		found, err := hintsFromSRV(addrs, p.tls)
		if err != nil {
			return nil, err
		}
		hints = append(hints, found...)
	}
	return hints, nil
}

// hintsFromSRV converts resolved SRV records into Hints, honoring the "."
// target convention (RFC 6120 §3.2.1) that means the service is explicitly
// unavailable.
func hintsFromSRV(addrs []*net.SRV, tls TLSMode) ([]Hint, error) {
	if len(addrs) == 1 && addrs[0].Target == "." {
		return nil, ErrNoServiceAtAddress
	}
	hints := make([]Hint, 0, len(addrs))
	for _, rec := range addrs {
		hints = append(hints, Hint{
			Protocol: TCP,
			Host:     trimTrailingDot(rec.Target),
			Port:     rec.Port,
			TLS:      tls,
		})
	}
	return hints, nil
}

func trimTrailingDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}

