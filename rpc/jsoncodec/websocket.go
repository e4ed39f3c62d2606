// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jsoncodec

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"

	"github.com/sxhdroid/kurento-room-client-go/rpc"
)

// NewWebsocket returns a codec that sends each envelope as a single
// websocket text message on conn.
func NewWebsocket(conn *websocket.Conn) *Codec {
	return New(&wsJSONConn{conn: conn})
}

type wsJSONConn struct {
	conn *websocket.Conn
}

func (conn *wsJSONConn) Receive(msg any) error {
	_, data, err := conn.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			// Surface the peer's close code and reason in a
			// transport-neutral form.
			return &rpc.ClosedError{
				Code:   closeErr.Code,
				Reason: closeErr.Text,
			}
		}
		return errors.Trace(err)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return &rpc.DecodeError{Err: err}
	}
	return nil
}

func (conn *wsJSONConn) Send(msg any) error {
	return errors.Trace(conn.conn.WriteJSON(msg))
}

func (conn *wsJSONConn) Close() error {
	// Tell the other end we are closing before dropping the
	// underlying connection.
	conn.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return errors.Trace(conn.conn.Close())
}

// Dialer opens a websocket connection to a signaling server and
// wraps it in the envelope codec. It implements rpc.Dialer: a single
// attempt per Dial, with no retry policy of its own.
type Dialer struct {
	// URL is the websocket endpoint, e.g. "wss://host:8443/room".
	URL string

	// TLSConfig, if non-nil, configures certificate verification
	// for wss endpoints. Self-signed room servers are common in
	// development deployments.
	TLSConfig *tls.Config

	// Header holds any additional HTTP headers to send during the
	// handshake, such as credentials supplied by the caller.
	Header http.Header

	// HandshakeTimeout bounds the websocket handshake. Zero means
	// the gorilla default.
	HandshakeTimeout time.Duration
}

// Dial implements rpc.Dialer.
func (d Dialer) Dial() (rpc.Codec, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  d.TLSConfig,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, _, err := dialer.Dial(d.URL, d.Header)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot dial %q", d.URL)
	}
	return NewWebsocket(conn), nil
}
