// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"lucidium.im/xmpp/jid"
)

// Message is an XMPP stanza that is used for push-style information
// exchange, such as chat messages.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      *jid.Jid    `xml:"to,attr,omitempty"`
	From    *jid.Jid    `xml:"from,attr,omitempty"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`
}

// MessageType is the type of a message stanza. The zero value is equivalent
// to NormalMessage.
type MessageType string

const (
	// NormalMessage is a single message sent outside the context of a
	// one-to-one or group conversation.
	NormalMessage MessageType = "normal"

	// ChatMessage is sent in the context of a one-to-one conversation.
	ChatMessage MessageType = "chat"

	// ErrorMessage indicates an error in a previously sent message; it MUST
	// include an <error/> child element.
	ErrorMessage MessageType = "error"

	// GroupChatMessage is sent in the context of a multi-user conversation.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage provides an alert, notice, or other transient
	// information to which no reply is expected.
	HeadlineMessage MessageType = "headline"
)
