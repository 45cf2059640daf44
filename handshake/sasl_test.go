// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"bytes"
	"strings"
	"testing"

	"mellium.im/sasl"
	"lucidium.im/xmpp/jid"
)

func newTestHandshaker(buf *bytes.Buffer) *Handshaker {
	return New(Config{
		Writer:     buf,
		Location:   jid.MustParse("example.org"),
		AuthnID:    jid.MustParse("alice@example.org"),
		Credential: StaticPassword("secret"),
		Mechanisms: []sasl.Mechanism{sasl.Plain},
	})
}

func TestStartSASLSelectsOfferedMechanism(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandshaker(&buf)
	if err := h.startSASL([]string{"PLAIN"}); err != nil {
		t.Fatalf("startSASL: %v", err)
	}
	if !strings.Contains(buf.String(), "mechanism='PLAIN'") {
		t.Errorf("expected PLAIN auth frame, got %q", buf.String())
	}
	if h.State() != Initialized {
		// startSASL only sets sub-state, not the top-level lifecycle state.
		t.Errorf("state = %v, want unchanged Initialized", h.State())
	}
}

func TestHandleSASLSuccessRestartsStream(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandshaker(&buf)
	if err := h.startSASL([]string{"PLAIN"}); err != nil {
		t.Fatalf("startSASL: %v", err)
	}
	buf.Reset()
	doc := mustDoc(t, `<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>`)
	if err := h.handleSASL(doc); err != nil {
		t.Fatalf("handleSASL: %v", err)
	}
	if h.State() != Started {
		t.Errorf("state = %v, want Started after restart", h.State())
	}
	if !strings.Contains(buf.String(), "stream:stream") {
		t.Errorf("expected stream restart, got %q", buf.String())
	}
}

func TestHandleSASLFailureClosesStream(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandshaker(&buf)
	if err := h.startSASL([]string{"PLAIN"}); err != nil {
		t.Fatalf("startSASL: %v", err)
	}
	doc := mustDoc(t, `<failure xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><not-authorized/></failure>`)
	if err := h.handleSASL(doc); err != ErrAuthenticationFailed {
		t.Fatalf("handleSASL = %v, want ErrAuthenticationFailed", err)
	}
	if h.State() != StreamClosed {
		t.Errorf("state = %v, want StreamClosed", h.State())
	}
	if h.Errors().Handshake != ErrAuthenticationFailed {
		t.Errorf("Errors().Handshake = %v, want ErrAuthenticationFailed", h.Errors().Handshake)
	}
}
