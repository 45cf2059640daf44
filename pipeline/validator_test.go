// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"context"
	"encoding/xml"
	"reflect"
	"testing"

	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/streamerror"
)

func TestValidatorForwardsWellFormedStanza(t *testing.T) {
	v := pipeline.NewValidator()
	item := xml.StartElement{Name: xml.Name{Space: "jabber:client", Local: "iq"}}
	out, err := v.OnRead(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || !reflect.DeepEqual(out[0], item) {
		t.Errorf("got %v, want [%v]", out, item)
	}
}

func TestValidatorAcceptsServerNamespace(t *testing.T) {
	v := pipeline.NewValidator()
	item := xml.StartElement{Name: xml.Name{Space: "jabber:server", Local: "iq"}}
	out, err := v.OnRead(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || !reflect.DeepEqual(out[0], item) {
		t.Errorf("got %v, want pass-through", out)
	}
}

func TestValidatorRejectsWrongNamespace(t *testing.T) {
	v := pipeline.NewValidator()
	badNS := xml.StartElement{Name: xml.Name{Space: "urn:example:bogus", Local: "message"}}
	if _, err := v.OnRead(context.Background(), badNS); err != streamerror.InvalidXMLErr {
		t.Errorf("got %v, want InvalidXMLErr", err)
	}
}

func TestValidatorPassesThroughNonStanzas(t *testing.T) {
	v := pipeline.NewValidator()
	item := xml.StartElement{Name: xml.Name{Space: "http://etherx.jabber.org/streams", Local: "features"}}
	out, err := v.OnRead(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || !reflect.DeepEqual(out[0], item) {
		t.Errorf("got %v, want pass-through", out)
	}
}
