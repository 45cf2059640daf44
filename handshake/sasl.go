// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"mellium.im/sasl"
	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/streamerror"
)

// startSASL selects the first mechanism, in our preference order, that the
// server also offers, and sends the initial <auth/> (spec §4.3, "SASL
// sub-protocol" steps 1-2).
func (h *Handshaker) startSASL(offered []string) error {
	var selected sasl.Mechanism
	offeredSet := make(map[string]bool, len(offered))
	for _, o := range offered {
		offeredSet[o] = true
	}
	for _, m := range h.mechs {
		if offeredSet[m.Name] {
			selected = m
			break
		}
	}
	if selected.Name == "" {
		h.mu.Lock()
		h.err.Handshake = ErrNoMechanism
		h.mu.Unlock()
		fmt.Fprint(h.cfg.Writer, `<abort xmlns='`+ns.SASL+`'/>`)
		return h.fail(streamerror.PolicyViolationErr)
	}

	opts := []sasl.Option{
		sasl.RemoteMechanisms(offered...),
	}
	if h.cfg.AuthzID != nil {
		opts = append(opts, sasl.Authz(h.cfg.AuthzID.Local()))
	}
	if h.cfg.Credential != nil {
		if pw, ok := h.cfg.Credential(context.TODO(), h.cfg.AuthnID.String(), selected.Name, "password"); ok {
			opts = append(opts, sasl.Credentials(h.cfg.AuthnID.Local(), pw))
		}
	}

	client := sasl.NewClient(selected, opts...)
	h.client = client

	more, resp, err := client.Step(nil)
	if err != nil {
		return h.fail(streamerror.NotAuthorizedErr)
	}
	// RFC 6120 §6.4.2: a zero-length initial response is sent as "=".
	if len(resp) == 0 {
		resp = []byte{'='}
	}

	h.mu.Lock()
	h.sub = subSASL
	h.saslMore = more
	h.mu.Unlock()

	_, err = fmt.Fprintf(h.cfg.Writer,
		`<auth xmlns='%s' mechanism='%s'>%s</auth>`,
		ns.SASL, selected.Name, base64.StdEncoding.EncodeToString(resp),
	)
	return err
}

// handleSASL processes one inbound <challenge/>, <success/>, or <failure/>
// element (spec §4.3, SASL sub-protocol step 3).
func (h *Handshaker) handleSASL(doc *pipeline.Document) error {
	switch {
	case doc.Start.Name.Space != ns.SASL:
		return h.fail(streamerror.UnsupportedStanzaTypeErr)
	}

	switch doc.Start.Name.Local {
	case "challenge", "success":
		data := struct {
			Data string `xml:",chardata"`
		}{}
		if err := doc.Decoder().Decode(&data); err != nil {
			return h.fail(streamerror.InvalidXMLErr)
		}
		var challenge []byte
		if data.Data != "" {
			var err error
			challenge, err = base64.StdEncoding.DecodeString(data.Data)
			if err != nil {
				return h.fail(streamerror.InvalidXMLErr)
			}
		}

		isSuccess := doc.Start.Name.Local == "success"
		if isSuccess {
			h.mu.Lock()
			needsStep := h.saslMore
			h.mu.Unlock()
			// Only re-enter Step if the previous step left the mechanism
			// expecting further server data to verify (e.g. SCRAM's
			// server-final signature); a mechanism that already finished
			// does not get stepped again.
			if needsStep {
				if _, _, err := h.client.Step(challenge); err != nil {
					return h.fail(streamerror.NotAuthorizedErr)
				}
			}
			h.mu.Lock()
			h.negotiated[xml.Name{Space: ns.SASL, Local: "mechanisms"}] = true
			h.sub = subNone
			h.mu.Unlock()
			return h.restartStream()
		}

		more, resp, err := h.client.Step(challenge)
		if err != nil {
			return h.fail(streamerror.NotAuthorizedErr)
		}
		h.mu.Lock()
		h.saslMore = more
		h.mu.Unlock()
		_, err = fmt.Fprintf(h.cfg.Writer, `<response xmlns='%s'>%s</response>`, ns.SASL, base64.StdEncoding.EncodeToString(resp))
		return err
	case "failure":
		h.mu.Lock()
		h.err.Handshake = ErrAuthenticationFailed
		h.mu.Unlock()
		h.setState(StreamClosing)
		fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
		h.setState(StreamClosed)
		return ErrAuthenticationFailed
	default:
		return h.fail(streamerror.UnsupportedStanzaTypeErr)
	}
}

// restartStream sends a fresh stream-open after a restart-required feature
// (here, SASL) negotiates, re-entering Started while preserving the
// already-negotiated feature set (spec §4.3).
func (h *Handshaker) restartStream() error {
	if err := h.sendStreamOpen(); err != nil {
		return err
	}
	h.setState(Started)
	return nil
}
