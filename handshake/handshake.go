// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package handshake

import (
	"context"
	"encoding/xml"
	"fmt"
	"sync"

	"mellium.im/sasl"
	"lucidium.im/xmpp/internal/ns"
	"lucidium.im/xmpp/jid"
	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/streamerror"
)

// featureOrder is the recommended negotiation order from spec §3: StartTLS,
// SASL, then ResourceBinding. StreamCompression is deliberately absent: its
// parameter is reserved but no compressor is implemented (spec §9).
var featureOrder = []xml.Name{
	{Space: ns.StartTLS, Local: "starttls"},
	{Space: ns.SASL, Local: "mechanisms"},
	{Space: ns.Bind, Local: "bind"},
}

var mandatory = map[xml.Name]bool{
	{Space: ns.StartTLS, Local: "starttls"}: true,
	{Space: ns.SASL, Local: "mechanisms"}:   true,
	{Space: ns.Bind, Local: "bind"}:         true,
}

// Handshaker pilots an XMPP stream from open to Completed or closed. It
// implements pipeline.Stage and is installed under Name in a Session's
// Pipeline.
type Handshaker struct {
	cfg Config

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	sub      subState
	mechs    []sasl.Mechanism
	negOrder []xml.Name
	saslMore bool

	negotiated map[xml.Name]bool
	offered    map[xml.Name]bool

	streamID string
	client   *sasl.Negotiator
	bindReq  string

	jid *jid.Jid
	err Errors
}

type subState int

const (
	subNone subState = iota
	subSASL
	subBind
	subStartTLS
)

// New constructs a Handshaker from cfg. cfg.Mechanisms defaults to
// ScramSha256Plus, ScramSha256, ScramSha1Plus, ScramSha1, Plain if empty.
func New(cfg Config) *Handshaker {
	mechs := cfg.Mechanisms
	if len(mechs) == 0 {
		mechs = defaultMechanisms()
	}
	h := &Handshaker{
		cfg:        cfg,
		mechs:      mechs,
		negOrder:   featureOrder,
		negotiated: make(map[xml.Name]bool),
		offered:    make(map[xml.Name]bool),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Name satisfies pipeline.Stage.
func (h *Handshaker) Name() string { return Name }

// OnAdded satisfies pipeline.Stage; it does not itself open the stream
// (Open does, called by whoever installs the Handshaker once the Pipeline
// is Running, per spec §4.3's Initialized -> Started transition).
func (h *Handshaker) OnAdded(context.Context) {}

// OnRemoved satisfies pipeline.Stage.
func (h *Handshaker) OnRemoved(context.Context) {
	h.setState(Disposed)
}

// State returns the Handshaker's current lifecycle state.
func (h *Handshaker) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Errors returns the three error slots, readable once the stream has
// closed.
func (h *Handshaker) Errors() Errors {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// JID returns the negotiated full Jid once resource binding has completed.
func (h *Handshaker) JID() *jid.Jid {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jid
}

func (h *Handshaker) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
	h.cond.Broadcast()
}

// Wait blocks until the Handshaker reaches Completed, StreamClosed, or
// Disposed, returning the state reached.
func (h *Handshaker) Wait(ctx context.Context) State {
	done := make(chan State, 1)
	go func() {
		h.mu.Lock()
		for h.state != Completed && h.state != StreamClosed && h.state != Disposed {
			h.cond.Wait()
		}
		s := h.state
		h.mu.Unlock()
		done <- s
	}()
	select {
	case s := <-done:
		return s
	case <-ctx.Done():
		return h.State()
	}
}

// Open sends the initial stream-open and transitions Initialized -> Started.
// It must be called once, after the owning Pipeline has started.
func (h *Handshaker) Open(ctx context.Context) error {
	if err := h.sendStreamOpen(); err != nil {
		return err
	}
	h.setState(Started)
	return nil
}

func (h *Handshaker) sendStreamOpen() error {
	_, err := fmt.Fprintf(h.cfg.Writer,
		`<?xml version="1.0"?><stream:stream to='%s' version='1.0' xmlns='%s' xmlns:stream='%s'>`,
		h.cfg.Location.String(), ns.Client, ns.Stream,
	)
	return err
}

// CloseStream is idempotent: it sends a stream close if the Handshaker is in
// a running state, then waits for StreamClosed.
func (h *Handshaker) CloseStream(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case StreamClosed, Disposed:
		h.mu.Unlock()
		return nil
	case StreamClosing:
		h.mu.Unlock()
		h.Wait(ctx)
		return nil
	}
	h.state = StreamClosing
	h.mu.Unlock()
	h.cond.Broadcast()

	_, err := fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
	h.Wait(ctx)
	return err
}

// OnRead satisfies pipeline.Stage. Before Completed, the Handshaker owns the
// stream-control sub-protocol and consumes every *pipeline.Document (forwards
// nothing); items of any other type are forwarded unchanged. Afterwards,
// ordinary stanzas pass straight through.
func (h *Handshaker) OnRead(ctx context.Context, item pipeline.Item) ([]pipeline.Item, error) {
	if h.State() == Completed {
		return []pipeline.Item{item}, nil
	}

	doc, ok := item.(*pipeline.Document)
	if !ok {
		return []pipeline.Item{item}, nil
	}

	if doc.Start.Name.Local == "error" && doc.Start.Name.Space == ns.Stream {
		var se streamerror.Error
		if err := doc.Decoder().Decode(&se); err != nil {
			se = streamerror.Error{Condition: streamerror.BadFormat}
		}
		h.mu.Lock()
		h.err.Server = se
		h.mu.Unlock()
		h.setState(StreamClosing)
		fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
		h.setState(StreamClosed)
		return nil, nil
	}

	switch h.State() {
	case Started:
		return nil, h.handleStreamOpen(doc)
	case Negotiating:
		return nil, h.dispatchNegotiating(ctx, doc)
	}
	return nil, nil
}

// OnWrite satisfies pipeline.Stage; the Handshaker writes its own control
// frames directly to the transport and does not intercept ordinary outbound
// traffic.
func (h *Handshaker) OnWrite(_ context.Context, item pipeline.Item) ([]pipeline.Item, error) {
	return []pipeline.Item{item}, nil
}

func (h *Handshaker) handleStreamOpen(doc *pipeline.Document) error {
	if doc.Start.Name.Local != "stream" || doc.Start.Name.Space != ns.Stream {
		return h.fail(streamerror.BadFormatErr)
	}
	var from string
	for _, a := range doc.Start.Attr {
		if a.Name.Local == "from" {
			from = a.Value
		}
		if a.Name.Local == "id" {
			h.streamID = a.Value
		}
	}
	if from != "" && from != h.cfg.Location.Domain() {
		return h.fail(streamerror.InvalidFromErr)
	}
	h.setState(Negotiating)
	return nil
}

// Fail sends se as the stream-level error and closes the stream (spec §7,
// "a validation error is converted to a stream-error and closes the
// stream"). Exported so the owning Session can route an inbound error the
// Pipeline raised outside the Handshaker's own OnRead — a Validator
// rejection, for instance — through the same closing path a negotiation
// protocol violation already takes.
func (h *Handshaker) Fail(se streamerror.Error) error {
	return h.fail(se)
}

func (h *Handshaker) fail(se streamerror.Error) error {
	switch h.State() {
	case StreamClosing, StreamClosed, Disposed:
		return se
	}
	h.mu.Lock()
	h.err.Client = se
	h.mu.Unlock()
	fmt.Fprintf(h.cfg.Writer, "%s", mustMarshal(se))
	h.setState(StreamClosing)
	fmt.Fprint(h.cfg.Writer, `</stream:stream>`)
	h.setState(StreamClosed)
	return se
}

func mustMarshal(se streamerror.Error) []byte {
	b, err := xml.Marshal(se)
	if err != nil {
		return nil
	}
	return b
}

func (h *Handshaker) dispatchNegotiating(ctx context.Context, doc *pipeline.Document) error {
	h.mu.Lock()
	sub := h.sub
	h.mu.Unlock()

	switch sub {
	case subSASL:
		return h.handleSASL(doc)
	case subBind:
		return h.handleBindResult(doc)
	case subStartTLS:
		return h.handleStartTLSReply(ctx, doc)
	}

	if doc.Start.Name.Local != "features" || doc.Start.Name.Space != ns.Stream {
		return nil
	}
	present, mechs, err := parseFeatures(doc)
	if err != nil {
		return h.fail(streamerror.InvalidXMLErr)
	}
	h.mu.Lock()
	for name := range present {
		h.offered[name] = true
	}
	h.mu.Unlock()

	for _, name := range h.negOrder {
		if h.negotiated[name] || !present[name] {
			continue
		}
		switch name.Local {
		case "starttls":
			return h.startStartTLS()
		case "mechanisms":
			return h.startSASL(mechs)
		case "bind":
			return h.startBind()
		}
	}

	// No selectable feature: if every mandatory feature the server actually
	// offered has been negotiated, we're done. A mandatory feature the
	// server never advertised (StartTLS on a direct-TLS or WebSocket
	// stream, spec §8 scenario (d)) is not required; one it advertised and
	// then dropped mid-stream is a protocol violation.
	if !h.mandatoryComplete() {
		return h.fail(streamerror.UnsupportedFeatureErr)
	}
	h.setState(Completed)
	return nil
}

// mandatoryComplete reports whether every mandatory feature the server has
// actually offered (tracked in h.offered across every <features/> seen) has
// also been negotiated. A mandatory feature never offered is vacuously
// satisfied: it was never the server's to provide.
func (h *Handshaker) mandatoryComplete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, isMandatory := range mandatory {
		if isMandatory && h.offered[name] && !h.negotiated[name] {
			return false
		}
	}
	return true
}

// parseFeatures walks the immediate children of a <features/> document,
// returning which of the known feature elements are present and, if SASL is
// offered, the advertised mechanism names.
func parseFeatures(doc *pipeline.Document) (present map[xml.Name]bool, mechs []string, err error) {
	present = make(map[xml.Name]bool)
	d := doc.Decoder()
	if _, err = d.Token(); err != nil { // discard <features>
		return nil, nil, err
	}
	for {
		tok, terr := d.Token()
		if terr != nil {
			return present, mechs, nil
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == doc.Start.Name {
				return present, mechs, nil
			}
		case xml.StartElement:
			present[t.Name] = true
			if t.Name.Space == ns.SASL && t.Name.Local == "mechanisms" {
				parsed := struct {
					List []string `xml:"urn:ietf:params:xml:ns:xmpp-sasl mechanism"`
				}{}
				if err := d.DecodeElement(&parsed, &t); err != nil {
					return present, mechs, err
				}
				mechs = parsed.List
				continue
			}
			if err := d.Skip(); err != nil {
				return present, mechs, err
			}
		}
	}
}
