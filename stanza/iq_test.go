// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza_test

import (
	"encoding/xml"
	"testing"

	"lucidium.im/xmpp/stanza"
)

func TestIQTypeMarshalEmpty(t *testing.T) {
	_, err := stanza.IQType("").MarshalXMLAttr(xml.Name{Local: "type"})
	if err != stanza.ErrEmptyIQType {
		t.Errorf("got %v, want ErrEmptyIQType", err)
	}
}

func TestIQTypeMarshal(t *testing.T) {
	attr, err := stanza.SetIQ.MarshalXMLAttr(xml.Name{Local: "type"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Value != "set" {
		t.Errorf("got %q, want set", attr.Value)
	}
}
