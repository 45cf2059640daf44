// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

// Package jid provides the parsing, composition and comparison of XMPP
// addresses (historically, "Jabber IDs").
package jid // import "lucidium.im/xmpp/jid"

import (
	"encoding/xml"
	"errors"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/precis"
)

// MaxPartLen is the maximum length, in bytes, allowed for any one JID part
// by RFC 7622 §3.
const MaxPartLen = 1023

// Errors returned while parsing or constructing a Jid.
var (
	ErrEmptyPart       = errors.New("jid: localpart or resourcepart present but empty")
	ErrLongPart        = errors.New("jid: a JID part is longer than 1023 bytes")
	ErrInvalidUTF8     = errors.New("jid: string is not valid UTF-8")
	ErrIllegalRune     = errors.New("jid: localpart contains a forbidden character")
	ErrIllegalSpace    = errors.New("jid: string contains illegal whitespace")
	ErrLeadingAt       = errors.New("jid: a leading '@' is not allowed")
	ErrLeadingSlash    = errors.New("jid: a leading '/' is not allowed")
	ErrMultipleParts   = errors.New("jid: more than one '@' or '/' found outside the resourcepart")
	ErrEmptyDomainpart = errors.New("jid: domainpart must not be empty")
)

// Jid is an immutable (localpart, domainpart, resourcepart) triple
// identifying an XMPP entity. The localpart and resourcepart may be empty;
// the domainpart may not. The zero value is not
// a valid Jid; use Parse or New.
type Jid struct {
	local    string
	domain   string
	resource string
}

// New builds a Jid directly from its already-prepared parts, validating
// length and character constraints but not re-running PRECIS preparation.
func New(local, domain, resource string) (*Jid, error) {
	if err := commonChecks(local, domain, resource); err != nil {
		return nil, err
	}
	return &Jid{local: local, domain: domain, resource: resource}, nil
}

// Parse splits s into its localpart, domainpart and resourcepart, applies
// PRECIS string preparation, and returns the resulting Jid.
//
// Parse accepts the legacy bracketed form "<user@domain/resource>" used by
// some older clients and servers, stripping the enclosing angle brackets
// before parsing.
func Parse(s string) (*Jid, error) {
	if !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	if len(strings.Fields(s)) > 1 {
		return nil, ErrIllegalSpace
	}

	local, domain, resource, err := splitString(s)
	if err != nil {
		return nil, err
	}
	return prepareParts(local, domain, resource)
}

// splitString divides a JID string into its three parts before any
// normalization is applied, per RFC 7622 §3.1's implementation note: the
// separator characters must be matched before transformation algorithms run
// (some Unicode code points decompose into '@' or '/').
func splitString(s string) (local, domain, resource string, err error) {
	// A single '/' separates the bare JID from the resourcepart.
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		if slash == 0 {
			return "", "", "", ErrLeadingSlash
		}
		resource = s[slash+1:]
		if resource == "" {
			return "", "", "", ErrEmptyPart
		}
		s = s[:slash]
	}

	if at := strings.IndexByte(s, '@'); at >= 0 {
		if at == 0 {
			return "", "", "", ErrLeadingAt
		}
		if strings.IndexByte(s[at+1:], '@') >= 0 {
			return "", "", "", ErrMultipleParts
		}
		local = s[:at]
		domain = s[at+1:]
		if domain == "" {
			return "", "", "", ErrEmptyPart
		}
	} else {
		domain = s
	}

	// RFC 7622 §3.2: a trailing label separator (dot) is stripped before any
	// other canonicalization.
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" {
		return "", "", "", ErrEmptyDomainpart
	}
	return local, domain, resource, nil
}

// prepareParts applies PRECIS preparation (UsernameCaseMapped for the
// localpart, OpaqueString for the resourcepart) and IDNA preparation for the
// domainpart, then validates the result.
func prepareParts(local, domain, resource string) (*Jid, error) {
	var err error
	if local != "" {
		local, err = precis.UsernameCaseMapped.String(local)
		if err != nil {
			return nil, err
		}
	}
	if resource != "" {
		resource, err = precis.OpaqueString.String(resource)
		if err != nil {
			return nil, err
		}
	}
	domain, err = idna.ToUnicode(domain)
	if err != nil {
		return nil, err
	}
	if err := commonChecks(local, domain, resource); err != nil {
		return nil, err
	}
	return &Jid{local: local, domain: domain, resource: resource}, nil
}

func commonChecks(local, domain, resource string) error {
	if !utf8.ValidString(local) || !utf8.ValidString(domain) || !utf8.ValidString(resource) {
		return ErrInvalidUTF8
	}
	if len(local) > MaxPartLen || len(domain) > MaxPartLen || len(resource) > MaxPartLen {
		return ErrLongPart
	}
	if domain == "" {
		return ErrEmptyDomainpart
	}
	// RFC 7622 §3.3.1: characters still forbidden in a localpart even though
	// the base IdentifierClass/UsernameCaseMapped profile permits them.
	if strings.ContainsAny(local, "\"&'/:<>@") {
		return ErrIllegalRune
	}
	if err := checkIP6Literal(domain); err != nil {
		return err
	}
	return nil
}

func checkIP6Literal(domain string) error {
	if l := len(domain); l > 2 && domain[0] == '[' && domain[l-1] == ']' {
		if ip := net.ParseIP(domain[1 : l-1]); ip == nil || ip.To4() != nil {
			return errors.New("jid: domainpart looks like an IPv6 literal but is not a valid address")
		}
	}
	return nil
}

// Local returns the localpart of the Jid, or the empty string if none is
// set.
func (j *Jid) Local() string { return j.local }

// Domain returns the domainpart of the Jid.
func (j *Jid) Domain() string { return j.domain }

// Resource returns the resourcepart of the Jid, or the empty string if none
// is set.
func (j *Jid) Resource() string { return j.resource }

// Bare reports whether the Jid has no resourcepart.
func (j *Jid) Bare() bool { return j.resource == "" }

// ToBare returns j if it is already a bare Jid (no resourcepart), or a new
// Jid with the resourcepart cleared otherwise.
func (j *Jid) ToBare() *Jid {
	if j.resource == "" {
		return j
	}
	return &Jid{local: j.local, domain: j.domain}
}

// WithResource returns a copy of j with the resourcepart replaced by
// resource (which must already be PRECIS-prepared; pass "" to clear it).
func (j *Jid) WithResource(resource string) (*Jid, error) {
	if err := commonChecks(j.local, j.domain, resource); err != nil {
		return nil, err
	}
	return &Jid{local: j.local, domain: j.domain, resource: resource}, nil
}

// Equal reports whether j and other have identical localpart, domainpart
// and resourcepart. A nil receiver or argument is only equal to nil.
func (j *Jid) Equal(other *Jid) bool {
	if j == nil || other == nil {
		return j == other
	}
	return j.local == other.local && j.domain == other.domain && j.resource == other.resource
}

// String renders the Jid as "[local@]domain[/resource]".
func (j *Jid) String() string {
	if j == nil {
		return ""
	}
	var b strings.Builder
	if j.local != "" {
		b.WriteString(j.local)
		b.WriteByte('@')
	}
	b.WriteString(j.domain)
	if j.resource != "" {
		b.WriteByte('/')
		b.WriteString(j.resource)
	}
	return b.String()
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (j *Jid) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j == nil {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (j *Jid) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = *parsed
	return nil
}

// MustParse is like Parse but panics if s cannot be parsed. It is intended
// for use in tests and package-level variable initialization where a bad
// address indicates a programmer error.
func MustParse(s string) *Jid {
	j, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return j
}
