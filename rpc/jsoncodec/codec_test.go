// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package jsoncodec_test

import (
	"encoding/json"
	"net"

	"github.com/juju/errors"
	jujutesting "github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/sxhdroid/kurento-room-client-go/rpc"
	"github.com/sxhdroid/kurento-room-client-go/rpc/jsoncodec"
)

type codecSuite struct {
	jujutesting.IsolationSuite
}

var _ = gc.Suite(&codecSuite{})

// pipeCodecs returns codecs for both ends of an in-memory
// connection. The far end stands in for the server.
func pipeCodecs(c *gc.C) (local, remote *jsoncodec.Codec) {
	clientConn, serverConn := net.Pipe()
	local = jsoncodec.NewNet(clientConn)
	remote = jsoncodec.NewNet(serverConn)
	return local, remote
}

func (s *codecSuite) TestRoundTrip(c *gc.C) {
	local, remote := pipeCodecs(c)
	defer local.Close()
	defer remote.Close()

	id := int64(1)
	sent := &rpc.Message{
		JSONRPC: rpc.Version,
		Method:  "joinRoom",
		Params:  map[string]any{"user": "alice", "room": "r1"},
		ID:      &id,
	}
	done := make(chan error, 1)
	go func() { done <- local.Send(sent) }()

	var got rpc.Message
	err := remote.Receive(&got)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(<-done, jc.ErrorIsNil)
	c.Assert(got.IsRequest(), jc.IsTrue)
	c.Assert(got.Method, gc.Equals, "joinRoom")
	c.Assert(got.Params, jc.DeepEquals, map[string]any{"user": "alice", "room": "r1"})
	c.Assert(*got.ID, gc.Equals, int64(1))
}

func (s *codecSuite) TestWireShape(c *gc.C) {
	clientConn, serverConn := net.Pipe()
	codec := jsoncodec.NewNet(clientConn)
	defer codec.Close()
	defer serverConn.Close()

	id := int64(3)
	done := make(chan error, 1)
	go func() {
		done <- codec.Send(&rpc.Message{
			JSONRPC: rpc.Version,
			Method:  "publishVideo",
			Params:  map[string]any{"sdpOffer": "v=0", "doLoopback": false},
			ID:      &id,
		})
	}()

	var wire map[string]any
	err := json.NewDecoder(serverConn).Decode(&wire)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(<-done, jc.ErrorIsNil)
	c.Assert(wire, jc.DeepEquals, map[string]any{
		"jsonrpc": "2.0",
		"method":  "publishVideo",
		"params":  map[string]any{"sdpOffer": "v=0", "doLoopback": false},
		"id":      float64(3),
	})
}

func (s *codecSuite) TestFireAndForgetOmitsID(c *gc.C) {
	clientConn, serverConn := net.Pipe()
	codec := jsoncodec.NewNet(clientConn)
	defer codec.Close()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		done <- codec.Send(&rpc.Message{
			JSONRPC: rpc.Version,
			Method:  "onIceCandidate",
			Params:  map[string]any{"candidate": "cand"},
		})
	}()

	var wire map[string]any
	err := json.NewDecoder(serverConn).Decode(&wire)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(<-done, jc.ErrorIsNil)
	_, found := wire["id"]
	c.Assert(found, jc.IsFalse)
	_, found = wire["result"]
	c.Assert(found, jc.IsFalse)
}

func (s *codecSuite) TestReceiveValidatesEnvelope(c *gc.C) {
	local, remote := pipeCodecs(c)
	defer local.Close()
	defer remote.Close()

	done := make(chan error, 1)
	go func() {
		// Valid JSON, but neither method nor id.
		done <- remote.Send(&rpc.Message{JSONRPC: rpc.Version})
	}()

	var got rpc.Message
	err := local.Receive(&got)
	c.Assert(<-done, jc.ErrorIsNil)
	var decodeErr *rpc.DecodeError
	c.Assert(errors.As(err, &decodeErr), jc.IsTrue)
	c.Assert(err, gc.ErrorMatches, "cannot decode inbound message: envelope carries neither method nor id")
}

func (s *codecSuite) TestReceiveAfterCloseFails(c *gc.C) {
	local, remote := pipeCodecs(c)
	defer remote.Close()

	err := local.Close()
	c.Assert(err, jc.ErrorIsNil)
	var got rpc.Message
	err = local.Receive(&got)
	c.Assert(err, gc.NotNil)
	var decodeErr *rpc.DecodeError
	c.Assert(errors.As(err, &decodeErr), jc.IsFalse)
}
