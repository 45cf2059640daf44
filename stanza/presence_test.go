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

func TestPresenceMarshal(t *testing.T) {
	to := mustJID(t, "juliet@example.com")
	pres := stanza.Presence{ID: "p1", To: to, Type: stanza.SubscribePresence}
	out, err := xml.Marshal(pres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `type="subscribe"`) {
		t.Errorf("got %q", s)
	}
}

func TestPresenceZeroTypeIsAvailable(t *testing.T) {
	pres := stanza.Presence{ID: "p2"}
	out, err := xml.Marshal(pres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(out), "type=") {
		t.Errorf("expected no type attribute for available presence, got %q", out)
	}
}
