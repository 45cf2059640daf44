// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"lucidium.im/xmpp/jid"
	"lucidium.im/xmpp/stanza"
)

func TestMessageMarshal(t *testing.T) {
	to := mustJID(t, "juliet@example.com")
	msg := stanza.Message{ID: "m1", To: to, Type: stanza.ChatMessage}
	out, err := xml.Marshal(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `type="chat"`) || !strings.Contains(s, `to="juliet@example.com"`) {
		t.Errorf("got %q", s)
	}
}

func TestMessageUnmarshal(t *testing.T) {
	const raw = `<message xmlns="jabber:client" id="m2" from="romeo@example.net" type="groupchat"/>`
	var msg stanza.Message
	if err := xml.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != stanza.GroupChatMessage {
		t.Errorf("Type = %q, want groupchat", msg.Type)
	}
	want, _ := jid.Parse("romeo@example.net")
	if !msg.From.Equal(want) {
		t.Errorf("From = %v, want %v", msg.From, want)
	}
}
