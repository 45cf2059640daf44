// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"net"
	"testing"
)

func TestHintsFromSRVRootTargetMeansUnavailable(t *testing.T) {
	_, err := hintsFromSRV([]*net.SRV{{Target: ".", Port: 5222}}, StartTLS)
	if err != ErrNoServiceAtAddress {
		t.Fatalf("got %v, want ErrNoServiceAtAddress", err)
	}
}

func TestHintsFromSRVTrimsTrailingDot(t *testing.T) {
	hints, err := hintsFromSRV([]*net.SRV{{Target: "xmpp.example.org.", Port: 5222}}, StartTLS)
	if err != nil {
		t.Fatalf("hintsFromSRV: %v", err)
	}
	if len(hints) != 1 {
		t.Fatalf("got %d hints, want 1", len(hints))
	}
	if hints[0].Host != "xmpp.example.org" {
		t.Errorf("Host = %q, want trimmed domain", hints[0].Host)
	}
	if hints[0].TLS != StartTLS {
		t.Errorf("TLS = %v, want StartTLS", hints[0].TLS)
	}
	if hints[0].Protocol != TCP {
		t.Errorf("Protocol = %v, want TCP", hints[0].Protocol)
	}
}

func TestHintsFromSRVMultipleRecords(t *testing.T) {
	hints, err := hintsFromSRV([]*net.SRV{
		{Target: "a.example.org.", Port: 5222},
		{Target: "b.example.org.", Port: 5223},
	}, Direct)
	if err != nil {
		t.Fatalf("hintsFromSRV: %v", err)
	}
	if len(hints) != 2 {
		t.Fatalf("got %d hints, want 2", len(hints))
	}
}
