// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"encoding/xml"
	"fmt"

	"lucidium.im/xmpp/internal/attr"
	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/jid"
	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/stanza"
	"lucidium.im/xmpp/streamerror"
)

// startBind sends the resource-binding iq-set (spec §4.3, "Resource binding
// sub-protocol").
func (h *Handshaker) startBind() error {
	id := attr.RandomID()
	h.mu.Lock()
	h.bindReq = id
	h.sub = subBind
	h.mu.Unlock()

	var err error
	if h.cfg.Resource == "" {
		_, err = fmt.Fprintf(h.cfg.Writer, `<iq id='%s' type='set'><bind xmlns='%s'/></iq>`, id, ns.Bind)
	} else {
		_, err = fmt.Fprintf(h.cfg.Writer, `<iq id='%s' type='set'><bind xmlns='%s'><resource>%s</resource></bind></iq>`, id, ns.Bind, h.cfg.Resource)
	}
	return err
}

// handleBindResult processes the correlated iq result or error (spec §4.3).
func (h *Handshaker) handleBindResult(doc *pipeline.Document) error {
	if doc.Start.Name.Local != "iq" {
		return h.fail(streamerror.InvalidXMLErr)
	}
	resp := struct {
		ID   string `xml:"id,attr"`
		Type string `xml:"type,attr"`
		Bind struct {
			JID string `xml:"jid"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-bind bind"`
		Err stanza.Error `xml:"error"`
	}{}
	if err := doc.Decoder().Decode(&resp); err != nil {
		return h.fail(streamerror.InvalidXMLErr)
	}

	h.mu.Lock()
	wantID := h.bindReq
	h.mu.Unlock()
	if resp.ID != wantID {
		return h.fail(streamerror.UndefinedConditionErr)
	}

	switch resp.Type {
	case "result":
		full, err := resolveBoundJID(h.cfg.AuthnID, resp.Bind.JID)
		if err != nil {
			h.mu.Lock()
			h.err.Handshake = ErrBindFailed
			h.mu.Unlock()
			return h.fail(streamerror.InvalidXMLErr)
		}
		h.mu.Lock()
		h.jid = full
		h.negotiated[xml.Name{Space: ns.Bind, Local: "bind"}] = true
		h.sub = subNone
		h.mu.Unlock()
		return h.afterFeatureNegotiated()
	case "error":
		h.mu.Lock()
		h.err.Handshake = resp.Err
		h.mu.Unlock()
		h.setState(StreamClosing)
		fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
		h.setState(StreamClosed)
		return resp.Err
	default:
		return h.fail(streamerror.UndefinedConditionErr)
	}
}

// resolveBoundJID interprets the <jid> element returned by bind. The normal
// case is a single full Jid; per spec §4.3/§9's resolved open question, if
// the server (unusually) returns two whitespace-separated tokens, the first
// must equal the requesting bare Jid and the second is the assigned
// resource.
func resolveBoundJID(authnID *jid.Jid, raw string) (*jid.Jid, error) {
	fields := splitFields(raw)
	switch len(fields) {
	case 1:
		return jid.Parse(fields[0])
	case 2:
		bare, err := jid.Parse(fields[0])
		if err != nil {
			return nil, err
		}
		if !bare.Equal(authnID.ToBare()) {
			return nil, ErrBindFailed
		}
		return jid.New(authnID.Local(), authnID.Domain(), fields[1])
	default:
		return nil, ErrBindFailed
	}
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// afterFeatureNegotiated is called once a no-restart feature (resource
// binding) finishes. Unlike SASL, the server does not send a fresh
// <features/> afterwards, so the Handshaker checks mandatory-feature
// completeness itself rather than waiting for another negotiation round.
func (h *Handshaker) afterFeatureNegotiated() error {
	if h.mandatoryComplete() {
		h.setState(Completed)
		return nil
	}
	h.setState(Negotiating)
	return nil
}
