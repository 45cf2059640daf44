// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"
	"io"

	"mellium.im/xmlstream"
	"lucidium.im/xmpp/jid"
)

// ErrUnknownStanza is returned by FromReader when the root element is not
// one of iq, message, or presence in a known stanza namespace.
var ErrUnknownStanza = errors.New("stanza: root element is not iq, message, or presence")

// WrapIQ wraps a payload in the IQ stanza described by iq. If iq is nil an
// empty IQ is used. The resulting token stream does not validate that the
// IQ is well formed (for instance, it will happily encode an IQ with no ID
// or type); callers that need stanza semantics enforced should do so before
// calling WrapIQ.
func WrapIQ(iq *IQ, payload xml.TokenReader) xml.TokenReader {
	if iq == nil {
		iq = &IQ{}
	}
	return xmlstream.Wrap(payload, iqStart(iq))
}

// WrapMessage wraps a payload in the message stanza described by msg. If
// msg is nil an empty Message is used.
func WrapMessage(msg *Message, payload xml.TokenReader) xml.TokenReader {
	if msg == nil {
		msg = &Message{}
	}
	return xmlstream.Wrap(payload, messageStart(msg))
}

// WrapPresence wraps a payload in the presence stanza described by pres. If
// pres is nil an empty Presence is used.
func WrapPresence(pres *Presence, payload xml.TokenReader) xml.TokenReader {
	if pres == nil {
		pres = &Presence{}
	}
	return xmlstream.Wrap(payload, presenceStart(pres))
}

func iqStart(iq *IQ) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: "iq"}}
	if iq.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}
	if iq.To != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: iq.To.String()})
	}
	if iq.From != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: iq.From.String()})
	}
	if iq.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}, Value: iq.Lang})
	}
	if iq.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(iq.Type)})
	}
	return start
}

func messageStart(msg *Message) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: "message"}}
	if msg.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: msg.ID})
	}
	if msg.To != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: msg.To.String()})
	}
	if msg.From != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: msg.From.String()})
	}
	if msg.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}, Value: msg.Lang})
	}
	if msg.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(msg.Type)})
	}
	return start
}

func presenceStart(pres *Presence) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: "presence"}}
	if pres.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: pres.ID})
	}
	if pres.To != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: pres.To.String()})
	}
	if pres.From != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: pres.From.String()})
	}
	if pres.Lang != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: "http://www.w3.org/XML/1998/namespace", Local: "lang"}, Value: pres.Lang})
	}
	if pres.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(pres.Type)})
	}
	return start
}

// Stanza is a read-only view over an already-received iq, message, or
// presence element. It carries just enough metadata for a plugin to decide
// whether and how to handle the stanza, without requiring the plugin to know
// the full payload shape up front; the original children are preserved and
// can be re-streamed with TokenReader.
type Stanza struct {
	// Kind is the local name of the root element: "iq", "message", or
	// "presence".
	Kind string

	// IQType holds the type attribute when Kind is "iq"; for message and
	// presence stanzas use Type instead.
	IQType IQType

	// Type holds the type attribute for message and presence stanzas.
	Type string

	ID   string
	From *jid.Jid
	To   *jid.Jid

	// Payload is the XML name of the first child element, the zero value if
	// the stanza has no children.
	Payload xml.Name

	start    xml.StartElement
	children []xml.Token
}

// FromReader reads a single stanza, starting at start, from r. It buffers the
// stanza's children so that TokenReader can replay them, but does not
// recursively decode payloads; callers that need a specific payload decoded
// should use d.DecodeElement or an xmlstream transformer on the result of
// TokenReader.
func FromReader(start xml.StartElement, r xml.TokenReader) (*Stanza, error) {
	switch start.Name.Local {
	case "iq", "message", "presence":
	default:
		return nil, ErrUnknownStanza
	}
	switch start.Name.Space {
	case "", NSClient, NSServer:
	default:
		return nil, ErrUnknownStanza
	}

	s := &Stanza{Kind: start.Name.Local, start: start}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			s.ID = attr.Value
		case "type":
			s.Type = attr.Value
			if s.Kind == "iq" {
				s.IQType = IQType(attr.Value)
			}
		case "from":
			j, err := jid.Parse(attr.Value)
			if err != nil {
				return nil, err
			}
			s.From = j
		case "to":
			j, err := jid.Parse(attr.Value)
			if err != nil {
				return nil, err
			}
			s.To = j
		}
	}

	depth := 0
	for {
		tok, err := r.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		tok = xml.CopyToken(tok)

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && s.Payload.Local == "" {
				s.Payload = t.Name
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				return s, nil
			}
			depth--
		}
		s.children = append(s.children, tok)
	}
	return s, nil
}

// TokenReader returns a stream of tokens representing the stanza, including
// its original start and end elements and any buffered children.
func (s *Stanza) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(&tokenSliceReader{toks: s.children}, s.start)
}

type tokenSliceReader struct {
	toks []xml.Token
	pos  int
}

func (t *tokenSliceReader) Token() (xml.Token, error) {
	if t.pos >= len(t.toks) {
		return nil, io.EOF
	}
	tok := t.toks[t.pos]
	t.pos++
	return tok, nil
}
