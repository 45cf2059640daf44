// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/xml"
	"io"
)

// Document is a fully buffered XML element together with its children. It is
// the concrete Item type a transport constructs from the wire (one per
// top-level element inside the stream) before handing it to Pipeline.Read,
// and the type stages that need to inspect or replay a whole element (the
// Validator, the Handshaker) expect to receive.
type Document struct {
	Start    xml.StartElement
	children []xml.Token
}

// ReadDocument consumes tokens from r, starting immediately after start, up
// to and including the matching end element, buffering everything in
// between so the result can be replayed any number of times.
func ReadDocument(start xml.StartElement, r xml.TokenReader) (*Document, error) {
	doc := &Document{Start: start}
	depth := 0
	for {
		tok, err := r.Token()
		if err != nil {
			if err == io.EOF {
				return doc, nil
			}
			return nil, err
		}
		tok = xml.CopyToken(tok)
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			_ = t
		case xml.EndElement:
			if depth == 0 {
				return doc, nil
			}
			depth--
		}
		doc.children = append(doc.children, tok)
	}
}

// StartElement satisfies the rootStart lookup used by Validator and other
// stages that only need to inspect the root element's name and attributes.
func (d *Document) StartElement() xml.StartElement { return d.Start }

// TokenReader replays the document as a token stream: the start element,
// every buffered child token, and the end element.
func (d *Document) TokenReader() xml.TokenReader {
	return &documentReader{doc: d}
}

type documentReader struct {
	doc   *Document
	pos   int
	done  bool
	began bool
}

func (r *documentReader) Token() (xml.Token, error) {
	if !r.began {
		r.began = true
		return r.doc.Start, nil
	}
	if r.pos < len(r.doc.children) {
		tok := r.doc.children[r.pos]
		r.pos++
		return tok, nil
	}
	if !r.done {
		r.done = true
		return r.doc.Start.End(), nil
	}
	return nil, io.EOF
}

// Decoder returns an *xml.Decoder that will decode exactly this document
// (starting from Start), suitable for one-shot structured decoding via
// DecodeElement.
func (d *Document) Decoder() *xml.Decoder {
	return xml.NewTokenDecoder(d.TokenReader())
}
