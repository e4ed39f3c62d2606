// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rpc

import (
	"encoding/json"
)

// Version is the JSON-RPC protocol version spoken on the wire.
const Version = "2.0"

// Message is the wire envelope exchanged with the signaling server.
// A single envelope shape covers the three inbound kinds; the
// populated fields determine which kind a decoded message is.
type Message struct {
	// JSONRPC holds the protocol version. It is written on every
	// outbound message and ignored on receipt.
	JSONRPC string `json:"jsonrpc,omitempty"`

	// Method holds the name of the operation being invoked. It is
	// set on requests and notifications, never on responses.
	Method string `json:"method,omitempty"`

	// Params holds the named parameters of a request or
	// notification. Values are JSON scalars (string, number, bool
	// or null).
	Params map[string]any `json:"params,omitempty"`

	// ID correlates a response with the request that caused it.
	// It is nil for notifications.
	ID *int64 `json:"id,omitempty"`

	// Result holds the payload of a successful response. It is
	// left as raw JSON for the caller to interpret.
	Result json.RawMessage `json:"result,omitempty"`

	// Error holds the server-reported error of a failed response.
	Error *RequestError `json:"error,omitempty"`
}

// IsResponse reports whether the message correlates to an earlier
// request: it carries an id but no method.
func (m *Message) IsResponse() bool {
	return m.ID != nil && m.Method == ""
}

// IsNotification reports whether the message is server-pushed state
// that expects no reply: it carries a method but no id.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// IsRequest reports whether the message is a server-initiated call
// that the client may answer: it carries both a method and an id.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// newRequest makes an outbound envelope for the given method. A
// negative id means no response is expected and the id is omitted
// from the wire form.
func newRequest(method string, params map[string]any, id int64) *Message {
	msg := &Message{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
	if id >= 0 {
		msg.ID = &id
	}
	return msg
}
