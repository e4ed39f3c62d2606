// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jsoncodec

import (
	"encoding/json"
	"net"
)

// NewNet returns a codec that streams newline-free JSON values over
// conn. It is mainly useful for tests, where a net.Pipe stands in
// for the websocket.
func NewNet(conn net.Conn) *Codec {
	return New(&netConn{
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
		conn: conn,
	})
}

type netConn struct {
	enc  *json.Encoder
	dec  *json.Decoder
	conn net.Conn
}

func (conn *netConn) Receive(msg any) error {
	return conn.dec.Decode(msg)
}

func (conn *netConn) Send(msg any) error {
	return conn.enc.Encode(msg)
}

func (conn *netConn) Close() error {
	return conn.conn.Close()
}
