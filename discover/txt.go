// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"context"
	"net"
	"strings"
)

const (
	txtName          = "_xmppconnect"
	txtWebsocketAttr = "_xmpp-client-websocket="
	txtBOSHAttr      = "_xmpp-client-xbosh="
)

// LookupWebsocketTXT discovers WebSocket endpoints for domain via the DNS
// TXT record published at _xmppconnect.<domain> (XEP-0156).
func LookupWebsocketTXT(ctx context.Context, resolver *net.Resolver, domain string) ([]string, error) {
	return lookupConnectTXT(ctx, resolver, domain, txtWebsocketAttr)
}

// LookupBOSHTXT discovers BOSH endpoints for domain via the DNS TXT record
// published at _xmppconnect.<domain>.
func LookupBOSHTXT(ctx context.Context, resolver *net.Resolver, domain string) ([]string, error) {
	return lookupConnectTXT(ctx, resolver, domain, txtBOSHAttr)
}

func lookupConnectTXT(ctx context.Context, resolver *net.Resolver, domain, attr string) ([]string, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	txts, err := resolver.LookupTXT(ctx, txtName+"."+domain)
	if err != nil {
		return nil, err
	}
	return parseConnectTXT(txts, attr), nil
}

func parseConnectTXT(txts []string, attr string) []string {
	var urls []string
	for _, txt := range txts {
		if rest, ok := strings.CutPrefix(txt, attr); ok {
			urls = append(urls, rest)
		}
	}
	return urls
}
