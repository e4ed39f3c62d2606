// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/juju/errors"
)

// ErrConnectionLost resolves every pending call when the transport
// closes underneath them, expectedly or not.
const ErrConnectionLost = errors.ConstError("connection lost")

// ErrShutdown resolves pending calls when the client itself is being
// torn down via Kill.
const ErrShutdown = errors.ConstError("client is shut down")

// ErrNotConnected describes a send attempted outside the Connected
// state. Such sends are dropped rather than surfaced to the caller
// (see Client.Send); the error exists for logging and for callers
// that want to name the condition.
const ErrNotConnected = errors.ConstError("not connected")

// ErrStrayResponse is reported to the event sink when a response
// arrives for a request id that has no pending call.
const ErrStrayResponse = errors.ConstError("response for unknown request id")

// RequestError is a server-reported error carried in a response
// envelope. It resolves only the specific pending call it correlates
// with, never the connection.
type RequestError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RequestError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return e.Message
}

// DuplicateIDError is reported to the event sink when a send reuses
// a correlation id that is still pending. The colliding send is not
// transmitted.
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("request id %d is already pending", e.ID)
}

// DecodeError wraps a failure to decode an inbound message. It is
// non-fatal: the dispatch loop reports it and keeps draining.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "cannot decode inbound message: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConnectError wraps a failure to open the transport.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return "cannot open connection: " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ClosedError describes a transport-level close, carrying the close
// code and reason supplied by the peer when there is one. Codecs
// translate their transport's close errors into this type so the
// dispatch loop can report them without knowing the transport.
type ClosedError struct {
	Code   int
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("connection closed: %s (close code %d)", e.Reason, e.Code)
	}
	return fmt.Sprintf("connection closed (close code %d)", e.Code)
}
