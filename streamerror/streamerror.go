// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

// Package streamerror defines the XMPP stream-level error conditions (RFC
// 6120 §4.9) and their XML encoding.
package streamerror // import "lucidium.im/xmpp/streamerror"

import (
	"encoding/xml"

	"lucidium.im/xmpp/internal/ns"
)

// Condition is a stream-level error condition as enumerated in RFC 6120
// §4.9.3.
type Condition string

// The stream error conditions defined by RFC 6120 §4.9.3.
const (
	BadFormat              Condition = "bad-format"
	BadNamespacePrefix     Condition = "bad-namespace-prefix"
	Conflict               Condition = "conflict"
	ConnectionTimeout      Condition = "connection-timeout"
	HostGone               Condition = "host-gone"
	HostUnknown            Condition = "host-unknown"
	ImproperAddressing     Condition = "improper-addressing"
	InternalServerError    Condition = "internal-server-error"
	InvalidFrom            Condition = "invalid-from"
	InvalidNamespace       Condition = "invalid-namespace"
	InvalidXML             Condition = "invalid-xml"
	NotAuthorized          Condition = "not-authorized"
	NotWellFormed          Condition = "not-well-formed"
	PolicyViolation        Condition = "policy-violation"
	RemoteConnectionFailed Condition = "remote-connection-failed"
	Reset                  Condition = "reset"
	ResourceConstraint     Condition = "resource-constraint"
	RestrictedXML          Condition = "restricted-xml"
	SeeOtherHost           Condition = "see-other-host"
	SystemShutdown         Condition = "system-shutdown"
	UndefinedCondition     Condition = "undefined-condition"
	UnsupportedEncoding    Condition = "unsupported-encoding"
	UnsupportedFeature     Condition = "unsupported-feature"
	UnsupportedStanzaType  Condition = "unsupported-stanza-type"
	UnsupportedVersion     Condition = "unsupported-version"
)

// Error is a terminal, stream-level XMPP error. Sending or receiving one
// always closes the stream (spec §3, "Stream errors are terminal").
type Error struct {
	Condition Condition
	Text      string
}

// Well-known, zero-text stream errors, provided as values so that callers can
// compare with == the way the teacher compares sentinel errors.
var (
	BadFormatErr              = Error{Condition: BadFormat}
	BadNamespacePrefixErr     = Error{Condition: BadNamespacePrefix}
	ConflictErr               = Error{Condition: Conflict}
	ImproperAddressingErr     = Error{Condition: ImproperAddressing}
	InternalServerErrorErr    = Error{Condition: InternalServerError}
	InvalidFromErr            = Error{Condition: InvalidFrom}
	InvalidNamespaceErr       = Error{Condition: InvalidNamespace}
	InvalidXMLErr             = Error{Condition: InvalidXML}
	NotAuthorizedErr          = Error{Condition: NotAuthorized}
	NotWellFormedErr          = Error{Condition: NotWellFormed}
	PolicyViolationErr        = Error{Condition: PolicyViolation}
	RestrictedXMLErr          = Error{Condition: RestrictedXML}
	UndefinedConditionErr     = Error{Condition: UndefinedCondition}
	UnsupportedFeatureErr     = Error{Condition: UnsupportedFeature}
	UnsupportedStanzaTypeErr  = Error{Condition: UnsupportedStanzaType}
	UnsupportedVersionErr     = Error{Condition: UnsupportedVersion}
)

// Error satisfies the error interface.
func (e Error) Error() string {
	if e.Text != "" {
		return string(e.Condition) + ": " + e.Text
	}
	return string(e.Condition)
}

// New returns a stream Error with the given condition and optional text.
func New(c Condition, text string) Error {
	return Error{Condition: c, Text: text}
}

// MarshalXML writes the error as a <stream:error> element, e.g.:
//
//	<stream:error>
//	  <invalid-xml xmlns='urn:ietf:params:xml:ns:xmpp-streams'/>
//	</stream:error>
func (e Error) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Space: ns.Stream, Local: "error"}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	cond := xml.StartElement{Name: xml.Name{Space: "urn:ietf:params:xml:ns:xmpp-streams", Local: string(e.Condition)}}
	if err := enc.EncodeToken(cond); err != nil {
		return err
	}
	if err := enc.EncodeToken(cond.End()); err != nil {
		return err
	}
	if e.Text != "" {
		text := xml.StartElement{Name: xml.Name{Space: "urn:ietf:params:xml:ns:xmpp-streams", Local: "text"}}
		if err := enc.EncodeToken(text); err != nil {
			return err
		}
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return err
		}
		if err := enc.EncodeToken(text.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// UnmarshalXML decodes a <stream:error> element into e.
func (e *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "text" {
				var text string
				if err := d.DecodeElement(&text, &t); err != nil {
					return err
				}
				e.Text = text
				continue
			}
			e.Condition = Condition(t.Name.Local)
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}
