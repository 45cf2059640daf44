// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"lucidium.im/xmpp/jid"
)

type fakeUpgrader struct {
	err error
}

func (f fakeUpgrader) StartTLS(context.Context) error { return f.err }

func TestStartStartTLSWithoutUpgraderFails(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandshaker(&buf)
	if err := h.startStartTLS(); err == nil {
		t.Fatalf("expected error with no TLSUpgrader configured")
	}
	if h.Errors().Handshake != ErrNoTLSUpgrader {
		t.Errorf("Errors().Handshake = %v, want ErrNoTLSUpgrader", h.Errors().Handshake)
	}
	if h.State() != StreamClosed {
		t.Errorf("state = %v, want StreamClosed", h.State())
	}
}

func TestStartStartTLSSendsElement(t *testing.T) {
	var buf bytes.Buffer
	h := New(Config{
		Writer:     &buf,
		Location:   jid.MustParse("example.org"),
		AuthnID:    jid.MustParse("alice@example.org"),
		Credential: StaticPassword("secret"),
		TLS:        fakeUpgrader{},
	})
	if err := h.startStartTLS(); err != nil {
		t.Fatalf("startStartTLS: %v", err)
	}
	if !strings.Contains(buf.String(), "<starttls") {
		t.Errorf("expected <starttls/>, got %q", buf.String())
	}
}

func TestHandleStartTLSReplyProceedUpgrades(t *testing.T) {
	var buf bytes.Buffer
	h := New(Config{
		Writer:     &buf,
		Location:   jid.MustParse("example.org"),
		AuthnID:    jid.MustParse("alice@example.org"),
		Credential: StaticPassword("secret"),
		TLS:        fakeUpgrader{},
	})
	if err := h.startStartTLS(); err != nil {
		t.Fatalf("startStartTLS: %v", err)
	}
	buf.Reset()
	doc := mustDoc(t, `<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)
	if err := h.handleStartTLSReply(context.Background(), doc); err != nil {
		t.Fatalf("handleStartTLSReply: %v", err)
	}
	if h.State() != Started {
		t.Errorf("state = %v, want Started after restart", h.State())
	}
	if !strings.Contains(buf.String(), "stream:stream") {
		t.Errorf("expected stream restart, got %q", buf.String())
	}
}

func TestHandleStartTLSReplyProceedUpgradeFailure(t *testing.T) {
	var buf bytes.Buffer
	upgradeErr := errors.New("handshake failed")
	h := New(Config{
		Writer:     &buf,
		Location:   jid.MustParse("example.org"),
		AuthnID:    jid.MustParse("alice@example.org"),
		Credential: StaticPassword("secret"),
		TLS:        fakeUpgrader{err: upgradeErr},
	})
	if err := h.startStartTLS(); err != nil {
		t.Fatalf("startStartTLS: %v", err)
	}
	doc := mustDoc(t, `<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)
	if err := h.handleStartTLSReply(context.Background(), doc); err == nil {
		t.Fatalf("expected error when TLS upgrade fails")
	}
	if h.State() != StreamClosed {
		t.Errorf("state = %v, want StreamClosed", h.State())
	}
}

func TestHandleStartTLSReplyFailure(t *testing.T) {
	var buf bytes.Buffer
	h := New(Config{
		Writer:     &buf,
		Location:   jid.MustParse("example.org"),
		AuthnID:    jid.MustParse("alice@example.org"),
		Credential: StaticPassword("secret"),
		TLS:        fakeUpgrader{},
	})
	if err := h.startStartTLS(); err != nil {
		t.Fatalf("startStartTLS: %v", err)
	}
	doc := mustDoc(t, `<failure xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>`)
	if err := h.handleStartTLSReply(context.Background(), doc); err != ErrTLSRefused {
		t.Fatalf("handleStartTLSReply = %v, want ErrTLSRefused", err)
	}
	if h.State() != StreamClosed {
		t.Errorf("state = %v, want StreamClosed", h.State())
	}
}
