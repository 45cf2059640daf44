// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stanza

import (
	"strings"

	"encoding/xml"

	"golang.org/x/text/language"
	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/jid"
)

// ErrorType is the value of a stanza error's type attribute.
type ErrorType int

// The five legal values of a stanza error's type attribute (RFC 6120 §8.3.2).
const (
	// Cancel indicates that the error cannot be remedied and the operation
	// should not be retried.
	Cancel ErrorType = iota

	// Auth indicates that an operation should be retried after providing
	// credentials.
	Auth

	// Continue indicates that the operation can proceed (the condition was
	// only a warning).
	Continue

	// Modify indicates that the operation can be retried after changing the
	// data sent.
	Modify

	// Wait indicates that an error is temporary and may be retried after
	// waiting.
	Wait
)

func (t ErrorType) String() string {
	switch t {
	case Auth:
		return "auth"
	case Continue:
		return "continue"
	case Modify:
		return "modify"
	case Wait:
		return "wait"
	default:
		return "cancel"
	}
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (t ErrorType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: strings.ToLower(t.String())}, nil
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (t *ErrorType) UnmarshalXMLAttr(attr xml.Attr) error {
	switch attr.Value {
	case "auth":
		*t = Auth
	case "continue":
		*t = Continue
	case "modify":
		*t = Modify
	case "wait":
		*t = Wait
	default: // case "cancel":
		*t = Cancel
	}
	return nil
}

// Condition represents a stanza error condition that can be encapsulated by
// an <error/> element.
type Condition string

// The stanza error conditions defined in RFC 6120 §8.3.3.
const (
	BadRequest            Condition = "bad-request"
	Conflict              Condition = "conflict"
	FeatureNotImplemented Condition = "feature-not-implemented"
	Forbidden             Condition = "forbidden"
	Gone                  Condition = "gone"
	InternalServerError   Condition = "internal-server-error"
	ItemNotFound          Condition = "item-not-found"
	JIDMalformed          Condition = "jid-malformed"
	NotAcceptable         Condition = "not-acceptable"
	NotAllowed            Condition = "not-allowed"
	NotAuthorized         Condition = "not-authorized"
	PolicyViolation       Condition = "policy-violation"
	RecipientUnavailable  Condition = "recipient-unavailable"
	Redirect              Condition = "redirect"
	RegistrationRequired  Condition = "registration-required"
	RemoteServerNotFound  Condition = "remote-server-not-found"
	RemoteServerTimeout   Condition = "remote-server-timeout"
	ResourceConstraint    Condition = "resource-constraint"
	ServiceUnavailable    Condition = "service-unavailable"
	SubscriptionRequired  Condition = "subscription-required"
	UndefinedCondition    Condition = "undefined-condition"
	UnexpectedRequest     Condition = "unexpected-request"
)

// Error is an implementation of error intended to be marshalable and
// unmarshalable as XML. It carries everything RFC 6120 §8.3 allows inside a
// stanza <error/> element.
type Error struct {
	XMLName xml.Name
	By      *jid.Jid
	Type     ErrorType
	Condition Condition
	Lang    language.Tag
	Text    string

	// AppCondition is the XML name of an optional application-specific
	// condition element nested alongside Condition.
	AppCondition xml.Name

	// RedirectURI carries the alternate address for the Gone and Redirect
	// conditions, where the condition element's character data is a URI.
	RedirectURI string

	// Original, if non-nil, is the stanza that triggered this error, echoed
	// back as permitted by RFC 6120 §8.3.1.
	Original *Stanza
}

// Error satisfies the error interface and returns the text if set, or the
// condition otherwise.
func (se Error) Error() string {
	if se.Text != "" {
		return se.Text
	}
	return string(se.Condition)
}

// MarshalXML satisfies the xml.Marshaler interface for Error.
func (se Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) (err error) {
	start := xml.StartElement{Name: xml.Name{Local: "error"}}
	typattr, _ := se.Type.MarshalXMLAttr(xml.Name{Local: "type"})
	start.Attr = append(start.Attr, typattr)
	if se.By != nil {
		a, _ := se.By.MarshalXMLAttr(xml.Name{Local: "by"})
		start.Attr = append(start.Attr, a)
	}
	if err = e.EncodeToken(start); err != nil {
		return err
	}

	cond := xml.StartElement{Name: xml.Name{Space: ns.Stanza, Local: string(se.Condition)}}
	if err = e.EncodeToken(cond); err != nil {
		return err
	}
	if se.RedirectURI != "" && (se.Condition == Gone || se.Condition == Redirect) {
		if err = e.EncodeToken(xml.CharData(se.RedirectURI)); err != nil {
			return err
		}
	}
	if err = e.EncodeToken(cond.End()); err != nil {
		return err
	}

	if se.AppCondition.Local != "" {
		app := xml.StartElement{Name: se.AppCondition}
		if err = e.EncodeToken(app); err != nil {
			return err
		}
		if err = e.EncodeToken(app.End()); err != nil {
			return err
		}
	}

	if se.Text != "" {
		text := xml.StartElement{
			Name: xml.Name{Space: ns.Stanza, Local: "text"},
			Attr: []xml.Attr{
				{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: se.Lang.String()},
			},
		}
		if err = e.EncodeToken(text); err != nil {
			return err
		}
		if err = e.EncodeToken(xml.CharData(se.Text)); err != nil {
			return err
		}
		if err = e.EncodeToken(text.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML satisfies the xml.Unmarshaler interface for Error.
func (se *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	decoded := struct {
		Condition struct {
			XMLName xml.Name
			Data    string `xml:",chardata"`
		} `xml:",any"`
		Type ErrorType `xml:"type,attr"`
		By   *jid.Jid  `xml:"by,attr"`
		Text []struct {
			Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Data string `xml:",chardata"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-stanzas text"`
	}{}
	if err := d.DecodeElement(&decoded, &start); err != nil {
		return err
	}
	se.Type = decoded.Type
	se.By = decoded.By
	if decoded.Condition.XMLName.Space == ns.Stanza {
		se.Condition = Condition(decoded.Condition.XMLName.Local)
		se.RedirectURI = strings.TrimSpace(decoded.Condition.Data)
	} else {
		se.AppCondition = decoded.Condition.XMLName
	}

	tags := make([]language.Tag, 0, len(decoded.Text))
	data := make(map[language.Tag]string)
	for _, text := range decoded.Text {
		tag, err := language.Parse(text.Lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		data[tag] = text.Data
	}
	if len(tags) > 0 {
		tag, _, _ := language.NewMatcher(tags).Match(se.Lang)
		se.Lang = tag
		se.Text = data[tag]
	}
	return nil
}
