// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package jsoncodec implements the JSON envelope codec used between
// the signaling client and the server, over any message-oriented
// connection.
package jsoncodec

import (
	"encoding/json"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/sxhdroid/kurento-room-client-go/rpc"
)

var logger = loggo.GetLogger("kurentoroom.jsoncodec")

// A Conn carries whole JSON values between peers. Receive and Send
// are never called concurrently with themselves; Close may be called
// concurrently with both.
type Conn interface {
	// Receive reads the next message into msg. A message that is
	// not valid JSON is reported as a *rpc.DecodeError and leaves
	// the connection readable.
	Receive(msg any) error

	// Send writes msg as a single message.
	Send(msg any) error

	// Close closes the connection, unblocking a pending Receive.
	Close() error
}

// Codec adapts a Conn into the envelope codec the rpc client
// consumes, validating envelope shape on receipt.
type Codec struct {
	conn    Conn
	closing int32
}

// New returns a codec speaking the wire envelope over conn.
func New(conn Conn) *Codec {
	return &Codec{conn: conn}
}

// Receive implements rpc.Codec. Messages that cannot be decoded or
// that fit none of the three envelope kinds are returned as
// *rpc.DecodeError so the caller can keep the connection alive.
func (c *Codec) Receive(msg *rpc.Message) error {
	var raw json.RawMessage
	if err := c.conn.Receive(&raw); err != nil {
		// Read errors during our own Close are expected noise.
		if atomic.LoadInt32(&c.closing) == 0 {
			logger.Debugf("error receiving message: %v", err)
		}
		return errors.Trace(err)
	}
	if logger.IsTraceEnabled() {
		logger.Tracef("<- %s", raw)
	}
	var decoded rpc.Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &rpc.DecodeError{Err: err}
	}
	if !decoded.IsResponse() && !decoded.IsNotification() && !decoded.IsRequest() {
		return &rpc.DecodeError{Err: errors.Errorf("envelope carries neither method nor id")}
	}
	*msg = decoded
	return nil
}

// Send implements rpc.Codec.
func (c *Codec) Send(msg *rpc.Message) error {
	if logger.IsTraceEnabled() {
		if data, err := json.Marshal(msg); err == nil {
			logger.Tracef("-> %s", data)
		}
	}
	return errors.Trace(c.conn.Send(msg))
}

// Close implements rpc.Codec.
func (c *Codec) Close() error {
	atomic.StoreInt32(&c.closing, 1)
	return errors.Trace(c.conn.Close())
}
