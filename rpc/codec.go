// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rpc

import (
	"encoding/json"
)

// A Codec reads and writes message envelopes on an open transport
// connection. The client calls Receive from a single reading
// goroutine and Send from the dispatch loop, so implementations need
// not serialize those against themselves; Close may be called
// concurrently with both and must cause a blocked Receive to return.
type Codec interface {
	// Receive reads the next inbound message into msg. A failure
	// to decode an otherwise healthy connection is returned as a
	// *DecodeError and leaves the connection usable; any other
	// error is treated as terminal. A close initiated by the peer
	// is returned as a *ClosedError.
	Receive(msg *Message) error

	// Send writes an outbound message.
	Send(msg *Message) error

	// Close closes the underlying connection.
	Close() error
}

// A Dialer opens the transport and wraps it in a Codec. Dial is
// invoked off the dispatch loop and may block; it is called at most
// once per Connect and never retried by the client.
type Dialer interface {
	Dial() (Codec, error)
}

// Events is the sink for everything the connection produces. The
// domain layer implements it once and receives responses,
// notifications, server-initiated requests and lifecycle events
// through it. All methods are invoked from the dispatch loop and
// must not block; hand off to another goroutine for long work.
type Events interface {
	// OnOpen is called when a Connect attempt succeeds.
	OnOpen()

	// OnResponse delivers the resolution of the pending call
	// registered under id: either the raw result payload, or an
	// error. The error is a *RequestError for a server-reported
	// failure, ErrConnectionLost or ErrShutdown when the call was
	// swept on teardown, or the transport write error when the
	// send itself failed. Exactly one OnResponse is delivered per
	// registered id.
	OnResponse(id int64, result json.RawMessage, err error)

	// OnNotification delivers server-pushed state that correlates
	// to no pending call.
	OnNotification(method string, params map[string]any)

	// OnRequest delivers a server-initiated call. Answering it is
	// the application's choice; most deployments never see one.
	OnRequest(req *Message)

	// OnClosed is called when the connection leaves the Connected
	// or Connecting state: after a Disconnect completes, after
	// the peer closes or the transport fails, or after a Connect
	// attempt fails. remote reports whether the other side
	// initiated the close.
	OnClosed(code int, reason string, remote bool)

	// OnError reports diagnostics that are fatal neither to the
	// connection nor to any one call: decode failures, stray
	// responses, duplicate-id rejections and connect failures.
	OnError(err error)
}
