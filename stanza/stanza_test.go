// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"mellium.im/xmlstream"
	"lucidium.im/xmpp/jid"
	"lucidium.im/xmpp/stanza"
)

func mustJID(t *testing.T, s string) *jid.Jid {
	t.Helper()
	j, err := jid.Parse(s)
	if err != nil {
		t.Fatalf("jid.Parse(%q) = %v", s, err)
	}
	return j
}

func TestWrapIQ(t *testing.T) {
	to := mustJID(t, "juliet@example.com")
	iq := &stanza.IQ{ID: "abc123", To: to, Type: stanza.GetIQ}
	r := stanza.WrapIQ(iq, xmlstream.Token(xml.CharData("payload")))

	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	if _, err := xmlstream.Copy(e, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `id="abc123"`) || !strings.Contains(out, `type="get"`) {
		t.Errorf("missing expected attrs in %q", out)
	}
}

func TestWrapNilStanza(t *testing.T) {
	r := stanza.WrapMessage(nil, nil)
	tok, err := r.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != "message" {
		t.Errorf("got %#v, want <message>", tok)
	}
}

func TestFromReaderRoundTrip(t *testing.T) {
	const raw = `<iq xmlns="jabber:client" id="x1" type="result" from="romeo@example.net/orchard" to="juliet@example.com"><query xmlns="jabber:iq:roster"/></iq>`
	d := xml.NewDecoder(strings.NewReader(raw))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := tok.(xml.StartElement)

	s, err := stanza.FromReader(start, d)
	if err != nil {
		t.Fatalf("FromReader: %v", err)
	}
	if s.Kind != "iq" {
		t.Errorf("Kind = %q, want iq", s.Kind)
	}
	if s.ID != "x1" {
		t.Errorf("ID = %q, want x1", s.ID)
	}
	if s.IQType != stanza.ResultIQ {
		t.Errorf("IQType = %q, want result", s.IQType)
	}
	if s.Payload.Local != "query" || s.Payload.Space != "jabber:iq:roster" {
		t.Errorf("Payload = %#v", s.Payload)
	}

	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	if _, err := xmlstream.Copy(e, s.TokenReader()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	e.Flush()
	if !strings.Contains(buf.String(), "query") {
		t.Errorf("replayed stream missing payload: %q", buf.String())
	}
}

func TestFromReaderRejectsUnknownRoot(t *testing.T) {
	const raw = `<foo xmlns="jabber:client"/>`
	d := xml.NewDecoder(strings.NewReader(raw))
	tok, _ := d.Token()
	start := tok.(xml.StartElement)

	if _, err := stanza.FromReader(start, d); err != stanza.ErrUnknownStanza {
		t.Errorf("got %v, want ErrUnknownStanza", err)
	}
}
