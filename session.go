// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpp implements the client-side core of an XMPP session: a
// Pipeline of replaceable XML-processing stages, a Handshaker that pilots
// stream negotiation, and a Session that owns both, correlates iq requests,
// hosts plugins, and publishes lifecycle events.
package xmpp // import "lucidium.im/xmpp"

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"lucidium.im/xmpp/handshake"
	"lucidium.im/xmpp/jid"
	"lucidium.im/xmpp/pipeline"
	"lucidium.im/xmpp/stanza"
	"lucidium.im/xmpp/streamerror"
)

// SessionState is the Session's lifecycle state (spec §4.4, §5).
type SessionState int32

// Session lifecycle states.
const (
	Disconnected SessionState = iota
	Connecting
	Connected
	Handshaking
	Online
	Disconnecting
	Disposed
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Handshaking:
		return "handshaking"
	case Online:
		return "online"
	case Disconnecting:
		return "disconnecting"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Session is the public entry point (spec §4.4): it owns the Pipeline and
// the transport, sends stanzas, correlates iq requests by id, hosts a
// plugin registry, and publishes a serialized event stream.
type Session struct {
	cfg       Config
	transport Transport
	pipeline  *pipeline.Pipeline
	events    *eventBus
	stanzas   *stanzaBus
	plugins   *PluginManager
	iq        *iqTable

	mu    sync.Mutex
	state SessionState
	hs    *handshake.Handshaker
}

// New constructs a Session in the Disconnected state, wired to transport but
// not yet connected. The Pipeline starts with a single pass-through stage
// occupying the "handshaker" slot (spec §4.1); Login replaces it with a live
// Handshaker for the lifetime of one connection and restores the
// pass-through on disconnect.
func New(cfg Config, transport Transport) *Session {
	p := pipeline.New()
	_ = p.AddLast(pipeline.NewValidator())
	_ = p.AddLast(newPassthroughStage(handshake.Name))

	s := &Session{
		cfg:       cfg,
		transport: transport,
		pipeline:  p,
		events:    newEventBus(),
		stanzas:   newStanzaBus(),
		iq:        newIQTable(),
	}
	s.plugins = newPluginManager(s)

	go s.pumpOutbound()
	go s.pumpInbound()
	go s.pumpErrors()
	return s
}

// Events returns a channel of lifecycle events (spec §4.4, "Event bus"). It
// closes when the Session disposes.
func (s *Session) Events() <-chan Event { return s.events.Subscribe() }

// Stanzas returns a channel of inbound iq/message/presence stanzas the
// Pipeline has accepted (spec §4.4: a Plugin "subscribes to the Session's
// inbound stanza stream"). An iq-get/iq-set no registered plugin declares
// support for never reaches this channel — the Session answers it with
// feature-not-implemented instead (spec §4.4, "supported_iqs"). The channel
// closes when the Session disposes.
func (s *Session) Stanzas() <-chan *stanza.Stanza { return s.stanzas.Subscribe() }

// Plugins returns the Session's plugin registry.
func (s *Session) Plugins() *PluginManager { return s.plugins }

// State returns the Session's current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(to SessionState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		s.events.Publish(StateChanged{From: from, To: to})
	}
}

func (s *Session) requireState(op string, allowed ...SessionState) error {
	cur := s.State()
	for _, a := range allowed {
		if cur == a {
			return nil
		}
	}
	return ErrStateViolation{Op: op, From: cur}
}

// passthroughStage is the default occupant of the "handshaker" slot before
// login, and again after disconnect; it forwards everything unchanged so the
// Pipeline is always a complete chain (spec §4.1).
type passthroughStage struct {
	pipeline.BaseStage
}

func newPassthroughStage(name string) *passthroughStage {
	return &passthroughStage{BaseStage: pipeline.NewBaseStage(name)}
}

// Login is the general form of spec §4.4's login operation. It transitions
// Disconnected -> Connecting, opens the transport, installs a live
// Handshaker in the "handshaker" slot, starts the Pipeline, and blocks until
// the Handshaker reaches a terminal state.
func (s *Session) Login(ctx context.Context, credential handshake.CredentialFunc) error {
	if err := s.requireState("login", Disconnected); err != nil {
		return err
	}
	s.setState(Connecting)

	if err := s.transport.Open(ctx); err != nil {
		s.setState(Disconnected)
		return ErrConnectionFailed{Err: err}
	}
	s.setState(Connected)

	hs := handshake.New(handshake.Config{
		Writer:      &transportWriter{t: s.transport},
		TLS:         handshakeTLS{t: s.transport},
		Location:    s.cfg.Location,
		AuthnID:     s.cfg.Origin,
		AuthzID:     authzJid(s.cfg),
		Credential:  credential,
		Mechanisms:  s.cfg.Mechanisms,
		Resource:    s.cfg.Resource,
		Registering: s.cfg.Registering,
	})

	s.mu.Lock()
	s.hs = hs
	s.mu.Unlock()

	if err := s.pipeline.Replace(handshake.Name, hs); err != nil {
		s.setState(Disconnected)
		return ErrConnectionFailed{Err: err}
	}
	if err := s.pipeline.Start(); err != nil {
		s.setState(Disconnected)
		return ErrConnectionFailed{Err: err}
	}

	s.setState(Handshaking)
	if err := hs.Open(ctx); err != nil {
		s.teardown(ctx)
		return ErrConnectionFailed{Err: err}
	}

	final := hs.Wait(ctx)
	if final != handshake.Completed {
		errs := hs.Errors()
		s.teardown(ctx)
		if !errs.IsZero() {
			return ErrHandshakeFailed{Errors: errs}
		}
		return ctx.Err()
	}

	s.setState(Online)
	s.events.Publish(StartTLSHandshakeCompleted{})
	return nil
}

// LoginPassword is the password-only convenience form of spec §4.4's login.
func (s *Session) LoginPassword(ctx context.Context, password string) error {
	return s.Login(ctx, handshake.StaticPassword(password))
}

func authzJid(cfg Config) *jid.Jid {
	if cfg.Identity == "" || cfg.Origin == nil {
		return nil
	}
	j, err := jid.New(cfg.Identity, cfg.Origin.Domain(), "")
	if err != nil {
		return nil
	}
	return j
}

// Disconnect is idempotent (spec §4.4): from Disconnected/Disposed it
// returns immediately; otherwise it closes the stream best-effort, closes
// the transport, and waits for the Disconnected transition.
func (s *Session) Disconnect(ctx context.Context) error {
	cur := s.State()
	if cur == Disconnected || cur == Disposed {
		return nil
	}
	s.setState(Disconnecting)

	s.mu.Lock()
	hs := s.hs
	s.mu.Unlock()
	if hs != nil {
		_ = hs.CloseStream(ctx)
	}
	s.teardown(ctx)
	return nil
}

// teardown closes the transport, stops the Pipeline, resets the
// "handshaker" slot to a pass-through, and transitions to Disconnected. It
// is the common path for a clean disconnect, a failed login, and an
// abnormal ConnectionTerminated.
func (s *Session) teardown(ctx context.Context) {
	_ = s.transport.Close(ctx)
	_ = s.pipeline.StopNow()
	_ = s.pipeline.Replace(handshake.Name, newPassthroughStage(handshake.Name))
	s.iq.abortAll()
	s.mu.Lock()
	s.hs = nil
	s.mu.Unlock()
	s.setState(Disconnected)
}

// Dispose moves the Session to Disposed from any state (spec §4.4),
// disconnecting first if necessary, completes the event bus, and releases
// the Pipeline.
func (s *Session) Dispose() error {
	if s.State() == Disposed {
		return nil
	}
	if s.State() != Disconnected {
		_ = s.Disconnect(context.Background())
	}
	_ = s.pipeline.Dispose()
	s.iq.abortAll()
	s.setState(Disposed)
	s.events.Complete()
	s.stanzas.Complete()
	return nil
}

// Send writes item into the Pipeline's outbound end (spec §4.4). Allowed
// while Online, and while Connected/Handshaking for framework-internal use
// (the Handshaker's own frames bypass this path and write to the transport
// directly).
func (s *Session) Send(item pipeline.Item) error {
	if err := s.requireState("send", Connected, Handshaking, Online); err != nil {
		return err
	}
	return s.pipeline.Write(item)
}

// SendStreamError routes the stream-level error se to the Handshaker, which
// serializes the responsive <error/> element and begins closing the stream
// (spec §4.4, "send(StreamError)").
func (s *Session) SendStreamError(ctx context.Context, se streamerror.Error) error {
	if err := s.requireState("send stream error", Connected, Handshaking, Online); err != nil {
		return err
	}
	s.mu.Lock()
	hs := s.hs
	s.mu.Unlock()
	if hs == nil {
		return ErrDisposed
	}
	_ = hs.Fail(se)
	return hs.CloseStream(ctx)
}

// SendMessage wraps payload in the message stanza described by msg and sends
// it (spec §4.4's send, specialized the way SendIQQuery specializes it for
// iq-get). payload may be nil for a bodyless message (a chat-state
// notification, for instance).
func (s *Session) SendMessage(msg *stanza.Message, payload xml.TokenReader) error {
	if err := s.requireState("send message", Online); err != nil {
		return err
	}
	doc, err := buildFromWrapper(stanza.WrapMessage(msg, payload))
	if err != nil {
		return err
	}
	return s.Send(doc)
}

// SendPresence wraps payload in the presence stanza described by pres and
// sends it. payload may be nil for bare availability/unavailability
// presence.
func (s *Session) SendPresence(pres *stanza.Presence, payload xml.TokenReader) error {
	if err := s.requireState("send presence", Online); err != nil {
		return err
	}
	doc, err := buildFromWrapper(stanza.WrapPresence(pres, payload))
	if err != nil {
		return err
	}
	return s.Send(doc)
}

// buildFromWrapper turns an xmlstream.Wrap-produced reader (its first token
// always the root start element) into a pipeline.Document, the form Send
// expects.
func buildFromWrapper(r xml.TokenReader) (*pipeline.Document, error) {
	tok, err := r.Token()
	if err != nil {
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return nil, errors.New("xmpp: wrapped stanza did not begin with a start element")
	}
	return pipeline.ReadDocument(start, r)
}

// SendIQQuery is the convenience form of spec §4.4's send_iq_query: it
// builds an iq-get with a fresh UUID id carrying a <query xmlns=namespace/>,
// writes it, and blocks until the matching inbound iq arrives, the context
// is canceled, or the Session is disposed.
func (s *Session) SendIQQuery(ctx context.Context, namespace string, target *jid.Jid) (*stanza.Stanza, error) {
	if err := s.requireState("send_iq_query", Online); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	fut := s.iq.register(id)
	defer s.iq.forget(id)

	doc, err := buildIQGet(id, target, namespace)
	if err != nil {
		return nil, err
	}
	if err := s.Send(doc); err != nil {
		return nil, err
	}

	select {
	case res := <-fut:
		if res == nil {
			return nil, nil // session disposed before a reply arrived
		}
		if res.stanza.IQType == stanza.ErrorIQ {
			if se, ok := decodeStanzaError(res.stanza); ok {
				return nil, se
			}
		}
		return res.stanza, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func buildIQGet(id string, target *jid.Jid, namespace string) (*pipeline.Document, error) {
	start := xml.StartElement{
		Name: xml.Name{Local: "iq"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: id},
			{Name: xml.Name{Local: "type"}, Value: string(stanza.GetIQ)},
		},
	}
	if target != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: target.String()})
	}
	queryStart := xml.StartElement{Name: xml.Name{Space: namespace, Local: "query"}}
	r := &staticTokenReader{toks: []xml.Token{queryStart, queryStart.End()}}
	return pipeline.ReadDocument(start, r)
}

// staticTokenReader replays a fixed slice of tokens once; it is how the core
// builds a Document for an outbound iq without going through a transport's
// wire parser.
type staticTokenReader struct {
	toks []xml.Token
	pos  int
}

func (r *staticTokenReader) Token() (xml.Token, error) {
	if r.pos >= len(r.toks) {
		return nil, io.EOF
	}
	tok := r.toks[r.pos]
	r.pos++
	return tok, nil
}

// buildIQError builds a feature-not-implemented (or other) iq-error reply to
// req, addressed back to its sender (spec §4.4, "supported_iqs").
func buildIQError(req *stanza.Stanza, se stanza.Error) (*pipeline.Document, error) {
	start := xml.StartElement{
		Name: xml.Name{Local: "iq"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: req.ID},
			{Name: xml.Name{Local: "type"}, Value: string(stanza.ErrorIQ)},
		},
	}
	if req.From != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: req.From.String()})
	}
	errBytes, err := xml.Marshal(se)
	if err != nil {
		return nil, err
	}
	toks, err := decodeTokens(errBytes)
	if err != nil {
		return nil, err
	}
	return pipeline.ReadDocument(start, &staticTokenReader{toks: toks})
}

// decodeTokens re-tokenizes an already-marshaled XML fragment so it can be
// replayed by a staticTokenReader.
func decodeTokens(b []byte) ([]xml.Token, error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	var toks []xml.Token
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return toks, nil
			}
			return nil, err
		}
		toks = append(toks, xml.CopyToken(tok))
	}
}

// replyFeatureNotImplemented answers req with a feature-not-implemented
// iq-error (spec §4.4, "supported_iqs" decides this), best-effort: a failure
// to build or send the reply surfaces as ExceptionCaught rather than
// propagating out of pumpInbound.
func (s *Session) replyFeatureNotImplemented(req *stanza.Stanza) {
	doc, err := buildIQError(req, stanza.Error{Type: stanza.Cancel, Condition: stanza.FeatureNotImplemented})
	if err != nil {
		s.events.Publish(ExceptionCaught{Err: err})
		return
	}
	if err := s.Send(doc); err != nil {
		s.events.Publish(ExceptionCaught{Err: err})
	}
}

// decodeStanzaError decodes the <error/> child of an iq-type-error stanza
// into a stanza.Error (spec §7, "Stanza-error").
func decodeStanzaError(s *stanza.Stanza) (stanza.Error, bool) {
	d := xml.NewTokenDecoder(s.TokenReader())
	start, err := nextStart(d)
	if err != nil {
		return stanza.Error{}, false
	}
	var wrapper struct {
		Err stanza.Error `xml:"error"`
	}
	if err := d.DecodeElement(&wrapper, &start); err != nil {
		return stanza.Error{}, false
	}
	return wrapper.Err, true
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// pumpOutbound relays every item the Pipeline produces on its outbound
// observable to the transport, in order (spec §5, "Outbound writes observed
// by the transport are in the order the Pipeline delivered them"). It runs
// for the lifetime of the Session, surviving disconnect/reconnect cycles.
func (s *Session) pumpOutbound() {
	for item := range s.pipeline.Outbound() {
		if err := s.transport.Send(item); err != nil {
			s.events.Publish(ExceptionCaught{Err: err})
		}
	}
}

// pumpInbound relays every item the Pipeline delivers on its inbound
// observable to iq correlation and, for everything else, to the plugin
// registry's inbound stanza stream: an iq-get/iq-set no plugin declares
// support for is answered with feature-not-implemented instead of being
// forwarded (spec §4.4, "supported_iqs").
func (s *Session) pumpInbound() {
	for item := range s.pipeline.Inbound() {
		doc, ok := item.(*pipeline.Document)
		if !ok {
			continue
		}
		switch doc.Start.Name.Local {
		case "iq", "message", "presence":
		default:
			continue
		}
		// FromReader takes the root start element separately and reads only
		// what follows it, so skip the start that TokenReader replays first.
		r := doc.TokenReader()
		if _, err := r.Token(); err != nil {
			continue
		}
		st, err := stanza.FromReader(doc.Start, r)
		if err != nil {
			continue
		}
		if st.Kind == "iq" && (st.IQType == stanza.ResultIQ || st.IQType == stanza.ErrorIQ) {
			if s.iq.complete(st.ID, st) {
				continue
			}
		}
		if st.Kind == "iq" && (st.IQType == stanza.GetIQ || st.IQType == stanza.SetIQ) && !s.plugins.supportedIQ(st.Payload.Space, st.Payload.Local) {
			s.replyFeatureNotImplemented(st)
			continue
		}
		s.stanzas.Publish(st)
	}
}

// pumpErrors relays Pipeline-level errors onto the event bus as
// ExceptionCaught and, for an inbound stream-level error (the Validator's
// rejection of a malformed stanza, in particular), drives the stream closed
// (spec §7: "a validation error is converted to a stream-error … and
// closes the stream").
func (s *Session) pumpErrors() {
	errs := s.pipeline.InboundErr()
	outs := s.pipeline.OutboundErr()
	for errs != nil || outs != nil {
		select {
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.events.Publish(ExceptionCaught{Err: err})
			s.closeOnStreamError(err)
		case err, ok := <-outs:
			if !ok {
				outs = nil
				continue
			}
			s.events.Publish(ExceptionCaught{Err: err})
		}
	}
}

// closeOnStreamError routes err to the Handshaker's close path if it wraps a
// streamerror.Error, and tears the Session down. A Pipeline stage error that
// is not stream-level (a decode failure local to one stanza, say) is left to
// ExceptionCaught alone.
func (s *Session) closeOnStreamError(err error) {
	var se streamerror.Error
	if !errors.As(err, &se) {
		return
	}
	cur := s.State()
	if cur == Disconnected || cur == Disposed {
		return
	}
	s.mu.Lock()
	hs := s.hs
	s.mu.Unlock()
	if hs != nil {
		_ = hs.Fail(se)
	}
	s.teardown(context.Background())
}

// ConnectionTerminated notifies the Session of an abnormal transport
// closure (spec §4.5, the transport's notifier). It transitions any
// connected state to Disconnected and publishes the event.
func (s *Session) ConnectionTerminated(err error) {
	cur := s.State()
	if cur == Disconnected || cur == Disposed {
		return
	}
	s.events.Publish(ConnectionTerminated{Err: err})
	s.teardown(context.Background())
}

// Feed hands a single inbound document, already parsed off the wire by the
// transport, to the Pipeline's read end (spec §4.5's feed callback).
func (s *Session) Feed(doc *pipeline.Document) error {
	return s.pipeline.Read(doc)
}

// transportWriter adapts Transport.Send to the io.Writer the Handshaker
// writes its raw stream-control frames to. These writes bypass the
// Pipeline entirely (the Handshaker owns the stream-level sub-protocol and
// talks to the wire directly, per handshake.Config's doc comment); each one
// is forwarded as a rawFrame item so a Transport implementation can tell
// pre-serialized bytes apart from a pipeline.Document it still needs to
// encode.
type transportWriter struct {
	t Transport
}

func (w *transportWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	if err := w.t.Send(rawFrame(buf)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// rawFrame is a []byte the Handshaker wrote directly, already serialized,
// as opposed to a pipeline.Document a Transport must encode itself.
type rawFrame []byte
