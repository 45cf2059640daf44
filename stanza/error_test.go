// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"lucidium.im/xmpp/stanza"
)

func TestErrorMarshal(t *testing.T) {
	se := stanza.Error{
		Type:      stanza.Modify,
		Condition: stanza.BadRequest,
		Text:      "missing id",
	}
	out, err := xml.Marshal(se)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `type="modify"`) {
		t.Errorf("missing type attr: %q", s)
	}
	if !strings.Contains(s, "bad-request") {
		t.Errorf("missing condition: %q", s)
	}
	if !strings.Contains(s, "missing id") {
		t.Errorf("missing text: %q", s)
	}
}

func TestErrorUnmarshal(t *testing.T) {
	const raw = `<error type="cancel" xmlns="jabber:client"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/><text xmlns="urn:ietf:params:xml:ns:xmpp-stanzas" xml:lang="en">no such item</text></error>`
	var se stanza.Error
	if err := xml.Unmarshal([]byte(raw), &se); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se.Condition != stanza.ItemNotFound {
		t.Errorf("Condition = %q, want item-not-found", se.Condition)
	}
	if se.Text != "no such item" {
		t.Errorf("Text = %q, want %q", se.Text, "no such item")
	}
}

func TestErrorString(t *testing.T) {
	se := stanza.Error{Condition: stanza.Forbidden}
	if got, want := se.Error(), "forbidden"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	se.Text = "go away"
	if got, want := se.Error(), "go away"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorRedirect(t *testing.T) {
	se := stanza.Error{
		Type:        stanza.Modify,
		Condition:   stanza.Gone,
		RedirectURI: "xmpp:new@example.com",
	}
	out, err := xml.Marshal(se)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "xmpp:new@example.com") {
		t.Errorf("missing redirect URI: %q", out)
	}
}
