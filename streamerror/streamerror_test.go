// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package streamerror

import (
	"bytes"
	"encoding/xml"
	"testing"
)

func TestMarshalRoundTrip(t *testing.T) {
	in := New(InvalidXML, "unexpected element")

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(in); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatal(err)
	}

	var out Error
	dec := xml.NewDecoder(&buf)
	tok, err := dec.Token()
	if err != nil {
		t.Fatalf("reading start token: %v", err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		t.Fatalf("expected a start element, got %T", tok)
	}
	if err := out.UnmarshalXML(dec, start); err != nil {
		t.Fatalf("UnmarshalXML returned error: %v", err)
	}
	if out.Condition != InvalidXML || out.Text != "unexpected element" {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestErrorString(t *testing.T) {
	if got := New(BadFormat, "").Error(); got != "bad-format" {
		t.Fatalf("Error() = %q, want bad-format", got)
	}
	if got := New(BadFormat, "oops").Error(); got != "bad-format: oops" {
		t.Fatalf("Error() = %q, want bad-format: oops", got)
	}
}
