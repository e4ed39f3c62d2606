// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package room is the domain layer over the signaling core: it
// speaks the multi-party room protocol (join, publish, subscribe,
// trickle ICE, room messages) and translates the core's events into
// the application's vocabulary via the Listener interface.
package room

import (
	"crypto/tls"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/sxhdroid/kurento-room-client-go/rpc"
	"github.com/sxhdroid/kurento-room-client-go/rpc/jsoncodec"
)

var logger = loggo.GetLogger("kurentoroom.room")

// Listener receives every asynchronous outcome of room calls and all
// server-pushed room state. Methods are invoked from the client's
// dispatch goroutine and must not block.
type Listener interface {
	// OnRoomConnected is called when the signaling connection
	// opens; sends are valid from this point.
	OnRoomConnected()

	// OnRoomResponse delivers the successful result of the call
	// sent with the matching correlation id.
	OnRoomResponse(resp *Response)

	// OnRoomError delivers the failure of the call sent with the
	// matching correlation id, whether reported by the server or
	// caused by losing the connection first.
	OnRoomError(err *Error)

	// OnRoomNotification delivers server-pushed room state.
	OnRoomNotification(ntf *Notification)

	// OnRoomDisconnected is called when the signaling connection
	// closes for any reason. remote reports whether the server
	// initiated the close.
	OnRoomDisconnected(code int, reason string, remote bool)
}

// Client is a client for a multi-party room signaling server. All
// Send methods are asynchronous and return immediately; results
// arrive through the Listener keyed by the caller-chosen correlation
// id. It holds a core rpc client by composition and implements its
// event sink.
type Client struct {
	core     *rpc.Client
	listener Listener
}

// NewClient returns a client for the room server at serverURL
// (a ws:// or wss:// endpoint). tlsConfig may be nil; supply one to
// trust a self-signed server certificate. The connection is not
// opened until Connect is called.
func NewClient(serverURL string, tlsConfig *tls.Config, listener Listener) *Client {
	return NewClientWithDialer(jsoncodec.Dialer{
		URL:       serverURL,
		TLSConfig: tlsConfig,
	}, listener)
}

// NewClientWithDialer is NewClient with the transport supplied by
// the caller.
func NewClientWithDialer(dialer rpc.Dialer, listener Listener) *Client {
	c := &Client{listener: listener}
	c.core = rpc.NewClient(dialer, coreEvents{c})
	return c
}

// Connect asynchronously opens the signaling connection; the
// Listener's OnRoomConnected reports success. Calling Connect while
// already connected or connecting has no effect.
func (c *Client) Connect() {
	c.core.Connect()
}

// Disconnect asynchronously closes the signaling connection. Calls
// still awaiting a response are failed over to OnRoomError.
func (c *Client) Disconnect() {
	c.core.Disconnect()
}

// IsConnected reports whether the signaling connection is open.
func (c *Client) IsConnected() bool {
	return c.core.IsConnected()
}

// Close shuts the client down entirely and waits for its internal
// goroutine to finish. The client cannot be reused afterwards.
func (c *Client) Close() error {
	c.core.Kill()
	return c.core.Wait()
}

// SendJoinRoom joins the named room, creating it if it does not
// exist. The response lists the participants already present.
func (c *Client) SendJoinRoom(user, roomName string, id int64) {
	c.core.Send(MethodJoinRoom, map[string]any{
		"user": user,
		"room": roomName,
	}, id)
}

// SendLeaveRoom leaves the current room.
func (c *Client) SendLeaveRoom(id int64) {
	c.core.Send(MethodLeaveRoom, nil, id)
}

// SendPublishVideo publishes this client's media. The response
// carries the sdpAnswer attribute.
func (c *Client) SendPublishVideo(sdpOffer string, doLoopback bool, id int64) {
	c.core.Send(MethodPublishVideo, map[string]any{
		"sdpOffer":   sdpOffer,
		"doLoopback": doLoopback,
	}, id)
}

// SendUnpublishVideo withdraws a previously published stream.
func (c *Client) SendUnpublishVideo(id int64) {
	c.core.Send(MethodUnpublishVideo, nil, id)
}

// SendReceiveVideoFrom subscribes to a publisher's stream. sender is
// the publisher's user name and stream name joined by an underscore,
// e.g. "alice_webcam". The response carries the sdpAnswer attribute.
func (c *Client) SendReceiveVideoFrom(sender, sdpOffer string, id int64) {
	c.core.Send(MethodReceiveVideoFrom, map[string]any{
		"sender":   sender,
		"sdpOffer": sdpOffer,
	}, id)
}

// SendUnsubscribeFromVideo stops receiving the named publisher's
// stream.
func (c *Client) SendUnsubscribeFromVideo(user, stream string, id int64) {
	c.core.Send(MethodUnsubscribeFromVideo, map[string]any{
		"sender": user + "_" + stream,
	}, id)
}

// SendOnIceCandidate trickles a locally gathered ICE candidate to
// the server. No response is expected, so no correlation id is used.
func (c *Client) SendOnIceCandidate(endpointName, candidate, sdpMid string, sdpMLineIndex int) {
	c.core.Send(MethodOnIceCandidate, map[string]any{
		"endPointName":  endpointName,
		"candidate":     candidate,
		"sdpMid":        sdpMid,
		"sdpMLineIndex": sdpMLineIndex,
	}, -1)
}

// SendMessage broadcasts a text message to every participant in the
// room.
func (c *Client) SendMessage(roomName, user, message string, id int64) {
	c.core.Send(MethodSendMessage, map[string]any{
		"message":     message,
		"userMessage": user,
		"roomMessage": roomName,
	}, id)
}

// SendCustomRequest sends a request not directly implemented by the
// room server, with arbitrary named parameters.
func (c *Client) SendCustomRequest(params map[string]any, id int64) {
	c.core.Send(MethodCustomRequest, params, id)
}

// coreEvents adapts the core's event sink onto the Listener without
// exporting the sink methods on Client itself.
type coreEvents struct {
	c *Client
}

func (e coreEvents) OnOpen() {
	e.c.listener.OnRoomConnected()
}

func (e coreEvents) OnResponse(id int64, result json.RawMessage, err error) {
	if err != nil {
		roomErr := &Error{ID: id, Message: err.Error()}
		var reqErr *rpc.RequestError
		if errors.As(err, &reqErr) {
			roomErr.Code = reqErr.Code
			roomErr.Message = reqErr.Message
		}
		e.c.listener.OnRoomError(roomErr)
		return
	}
	resp := &Response{ID: id}
	if len(result) > 0 {
		if uerr := json.Unmarshal(result, &resp.Values); uerr != nil {
			logger.Debugf("response %d result is not an object: %v", id, uerr)
		}
	}
	e.c.listener.OnRoomResponse(resp)
}

func (e coreEvents) OnNotification(method string, params map[string]any) {
	e.c.listener.OnRoomNotification(&Notification{
		Method: method,
		Params: params,
	})
}

func (e coreEvents) OnRequest(req *rpc.Message) {
	// The room protocol has no server-initiated calls; nothing
	// answers them.
	logger.Warningf("ignoring server request %q (id %d)", req.Method, *req.ID)
}

func (e coreEvents) OnClosed(code int, reason string, remote bool) {
	e.c.listener.OnRoomDisconnected(code, reason, remote)
}

func (e coreEvents) OnError(err error) {
	logger.Errorf("connection error: %v", err)
}
