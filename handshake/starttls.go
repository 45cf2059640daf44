// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"context"
	"encoding/xml"
	"fmt"

	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/streamerror"
)

// ErrNoTLSUpgrader is returned when a server offers StartTLS but the
// Handshaker was not configured with a TLSUpgrader.
var ErrNoTLSUpgrader = fmt.Errorf("handshake: server offered starttls but no TLSUpgrader is configured")

// startStartTLS sends <starttls/> and arms the Handshaker to expect
// <proceed/> or <failure/> (spec §4.3, "StartTLS").
func (h *Handshaker) startStartTLS() error {
	if h.cfg.TLS == nil {
		h.mu.Lock()
		h.err.Handshake = ErrNoTLSUpgrader
		h.mu.Unlock()
		return h.fail(streamerror.UnsupportedFeatureErr)
	}
	h.mu.Lock()
	h.sub = subStartTLS
	h.mu.Unlock()
	_, err := fmt.Fprintf(h.cfg.Writer, `<starttls xmlns='%s'/>`, ns.StartTLS)
	return err
}

// handleStartTLSReply processes the server's <proceed/> or <failure/> and,
// on success, invokes the transport's TLS upgrade and restarts the stream.
func (h *Handshaker) handleStartTLSReply(ctx context.Context, doc *pipeline.Document) error {
	if doc.Start.Name.Space != ns.StartTLS {
		return h.fail(streamerror.UnsupportedStanzaTypeErr)
	}
	switch doc.Start.Name.Local {
	case "proceed":
		if err := h.cfg.TLS.StartTLS(ctx); err != nil {
			return h.fail(streamerror.PolicyViolationErr)
		}
		h.mu.Lock()
		h.negotiated[xml.Name{Space: ns.StartTLS, Local: "starttls"}] = true
		h.sub = subNone
		h.mu.Unlock()
		return h.restartStream()
	case "failure":
		h.mu.Lock()
		h.err.Handshake = ErrTLSRefused
		h.mu.Unlock()
		h.setState(StreamClosing)
		fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
		h.setState(StreamClosed)
		return ErrTLSRefused
	default:
		return h.fail(streamerror.UnsupportedStanzaTypeErr)
	}
}
