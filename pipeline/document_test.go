// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"lucidium.im/xmpp/pipeline"
)

func TestReadDocumentReplaysChildren(t *testing.T) {
	const raw = `<iq xmlns="jabber:client" id="x1" type="get"><query xmlns="jabber:iq:version"/></iq>`
	d := xml.NewDecoder(strings.NewReader(raw))
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := tok.(xml.StartElement)

	doc, err := pipeline.ReadDocument(start, d)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}

	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	r := doc.TokenReader()
	for {
		tok, err := r.Token()
		if err != nil {
			break
		}
		if err := e.EncodeToken(tok); err != nil {
			t.Fatalf("EncodeToken: %v", err)
		}
	}
	e.Flush()
	if !strings.Contains(buf.String(), "query") {
		t.Errorf("replayed document missing child: %q", buf.String())
	}
}
