// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import "testing"

func TestHintAddr(t *testing.T) {
	h := Hint{Host: "example.org", Port: 5222}
	if got, want := h.Addr(), "example.org:5222"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

func TestLookupPortFallback(t *testing.T) {
	cases := map[string]uint16{
		"xmpp-client":  5222,
		"xmpps-client": 5223,
		"xmpp-server":  5269,
		"xmpp-bosh":    5280,
	}
	for service, want := range cases {
		got, err := LookupPort("tcp", service)
		if err != nil {
			t.Errorf("LookupPort(%q): %v", service, err)
			continue
		}
		if got != want {
			t.Errorf("LookupPort(%q) = %d, want %d", service, got, want)
		}
	}
}

func TestProtocolString(t *testing.T) {
	if TCP.String() != "tcp" {
		t.Errorf("TCP.String() = %q", TCP.String())
	}
	if WebSocket.String() != "websocket" {
		t.Errorf("WebSocket.String() = %q", WebSocket.String())
	}
}
