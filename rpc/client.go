// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package rpc implements the client side of a JSON-RPC style
// signaling protocol multiplexed over a single duplex connection:
// correlated request/response pairs plus unsolicited server
// notifications.
//
// All connection state lives behind a single dispatch goroutine.
// Callers enqueue connect, disconnect and send operations from any
// goroutine; the transport's reading goroutine enqueues inbound
// messages and close events onto the same queue. Because the queue
// is drained strictly in order by one goroutine, a response can
// never be observed before the registration of the call it answers,
// and no other locking is needed around the connection state or the
// pending-call registry.
package rpc

import (
	"encoding/json"
	"sync"

	"github.com/juju/collections/deque"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gopkg.in/tomb.v2"
)

var logger = loggo.GetLogger("kurentoroom.rpc")

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// Client multiplexes calls and notifications over one signaling
// connection. It is safe for use by multiple goroutines; results
// and events are delivered through the Events sink supplied at
// construction time.
type Client struct {
	dialer Dialer
	events Events

	tomb tomb.Tomb

	// mu guards queue, state and dead. state is written only by
	// the dispatch loop; the lock exists so IsConnected can read
	// it from any goroutine without joining the queue.
	mu    sync.Mutex
	queue *deque.Deque
	state State
	dead  bool

	// wake signals the dispatch loop that the queue is non-empty.
	wake chan struct{}

	// The fields below are confined to the dispatch loop.

	// codec is the connection to the server, owned exclusively by
	// the loop while Connecting/Connected.
	codec Codec

	// gen distinguishes connection attempts, so that a dial or
	// close completing after the attempt it belongs to has been
	// superseded is discarded rather than misapplied.
	gen uint64

	pending *pendingCalls
}

// NewClient returns a started client that will open connections with
// dialer and deliver all results and events to events, which must
// not be nil. The client runs until Kill is called.
func NewClient(dialer Dialer, events Events) *Client {
	c := &Client{
		dialer:  dialer,
		events:  events,
		queue:   deque.New(),
		wake:    make(chan struct{}, 1),
		pending: newPendingCalls(),
	}
	c.tomb.Go(c.loop)
	return c
}

// Kill requests the client to stop. Any open connection is closed
// and every pending call is resolved with ErrShutdown.
func (c *Client) Kill() {
	c.tomb.Kill(nil)
}

// Wait waits for the client to stop and returns the error with
// which it was killed.
func (c *Client) Wait() error {
	return c.tomb.Wait()
}

// Dead returns a channel that is closed when the client has stopped.
func (c *Client) Dead() <-chan struct{} {
	return c.tomb.Dead()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the connection is currently open for
// sending. It never blocks.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

// Connect asynchronously opens the connection. It returns
// immediately; a later OnOpen event signals that sends have become
// valid, and a failed attempt is reported through OnError and
// OnClosed. Connect is a no-op when already Connected or Connecting.
func (c *Client) Connect() {
	c.enqueue(c.handleConnect)
}

// Disconnect asynchronously closes the connection. Calls still
// pending when the close completes are resolved with
// ErrConnectionLost. Disconnect is a no-op unless the connection is
// Connected or Connecting, so repeated calls are harmless.
func (c *Client) Disconnect() {
	c.enqueue(c.handleDisconnect)
}

// Send asynchronously transmits a call for method with the given
// named parameters. A non-negative id registers a pending call whose
// resolution arrives through OnResponse keyed by that id; reusing an
// id that is still pending is rejected via OnError and nothing is
// sent. A negative id means fire-and-forget: no response is expected
// or ever attributed to it.
//
// Sends issued while the connection is not open are dropped
// silently: the protocol is best-effort and the server holds no
// state for a client that is not connected. Callers that need the
// guarantee should check IsConnected and await OnOpen.
func (c *Client) Send(method string, params map[string]any, id int64) {
	msg := newRequest(method, params, id)
	c.enqueue(func() { c.handleSend(msg) })
}

// queued is one operation on the dispatch queue. abandon, when set,
// runs in place of run if the client stops before the operation is
// drained; it must release any resource run would have taken
// ownership of.
type queued struct {
	run     func()
	abandon func()
}

// enqueue appends op to the dispatch queue without ever blocking the
// caller; the queue is unbounded.
func (c *Client) enqueue(op func()) {
	c.push(queued{run: op})
}

func (c *Client) push(q queued) {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		if q.abandon != nil {
			q.abandon()
		}
		return
	}
	c.queue.PushBack(q)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) loop() error {
	defer c.teardown()
	for {
		select {
		case <-c.tomb.Dying():
			return tomb.ErrDying
		case <-c.wake:
			c.drain()
		}
	}
}

// drain runs queued operations until the queue is empty. It runs on
// the dispatch goroutine only.
func (c *Client) drain() {
	for {
		c.mu.Lock()
		op, ok := c.queue.PopFront()
		c.mu.Unlock()
		if !ok {
			return
		}
		op.(queued).run()
	}
}

// teardown releases the connection when the client stops. Pending
// calls must not be left hanging past the loop's death, and neither
// may a codec held by an undrained operation, such as a dial that
// completed after the loop stopped listening.
func (c *Client) teardown() {
	c.mu.Lock()
	c.dead = true
	var leftover []queued
	for {
		op, ok := c.queue.PopFront()
		if !ok {
			break
		}
		leftover = append(leftover, op.(queued))
	}
	c.mu.Unlock()
	for _, q := range leftover {
		if q.abandon != nil {
			q.abandon()
		}
	}
	if c.codec != nil {
		if err := c.codec.Close(); err != nil {
			logger.Debugf("error closing codec on teardown: %v", err)
		}
		c.codec = nil
	}
	c.setState(Disconnected)
	c.pending.resolveAll(ErrShutdown)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) handleConnect() {
	switch c.State() {
	case Connected, Connecting:
		return
	case Closing:
		// Reconnecting before the close confirmation arrived.
		// Complete the close now so its pending sweep and
		// closed event are not lost; the stale pump event is
		// discarded by the generation check.
		c.completeClose(nil)
	}
	c.setState(Connecting)
	c.gen++
	gen := c.gen
	// Dialing may block, so it happens off the loop; the outcome
	// rejoins the queue.
	go func() {
		codec, err := c.dialer.Dial()
		c.push(queued{
			run: func() { c.handleOpened(gen, codec, err) },
			abandon: func() {
				if codec != nil {
					codec.Close()
				}
			},
		})
	}()
}

func (c *Client) handleOpened(gen uint64, codec Codec, err error) {
	if gen != c.gen || c.State() != Connecting {
		// The attempt was abandoned while the dial was in
		// flight.
		if codec != nil {
			codec.Close()
		}
		return
	}
	if err != nil {
		c.setState(Disconnected)
		c.events.OnError(&ConnectError{Err: err})
		c.events.OnClosed(0, err.Error(), false)
		return
	}
	c.codec = codec
	c.setState(Connected)
	c.events.OnOpen()
	go c.readPump(gen, codec)
}

func (c *Client) handleDisconnect() {
	switch c.State() {
	case Connected:
		c.setState(Closing)
		// Closing the codec makes the read pump fail, which
		// completes the transition via handleClosed.
		if err := c.codec.Close(); err != nil {
			logger.Debugf("error closing codec: %v", err)
		}
	case Connecting:
		// No transport to close yet; abandon the dial.
		c.gen++
		c.setState(Disconnected)
		c.events.OnClosed(0, "connection abandoned before open", false)
	}
}

func (c *Client) handleSend(msg *Message) {
	if c.State() != Connected {
		logger.Debugf("dropping %q send: %v", msg.Method, ErrNotConnected)
		return
	}
	if msg.ID != nil {
		id := *msg.ID
		err := c.pending.register(id, func(result json.RawMessage, err error) {
			c.events.OnResponse(id, result, err)
		})
		if err != nil {
			c.events.OnError(err)
			return
		}
	}
	if err := c.codec.Send(msg); err != nil {
		logger.Debugf("error sending %q: %v", msg.Method, err)
		if msg.ID != nil {
			c.pending.resolve(*msg.ID, nil, errors.Trace(err))
		} else {
			c.events.OnError(errors.Annotatef(err, "cannot send %q", msg.Method))
		}
	}
}

// readPump runs in its own goroutine for the lifetime of one
// connection, feeding inbound traffic into the dispatch queue. Every
// event it enqueues carries its generation: a pump can outlive its
// connection, holding a received frame across a disconnect, and
// nothing it read may leak into a later connection.
func (c *Client) readPump(gen uint64, codec Codec) {
	for {
		msg := new(Message)
		err := codec.Receive(msg)
		if err == nil {
			c.enqueue(func() { c.handleInbound(gen, msg) })
			continue
		}
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			// Malformed traffic is not fatal to the
			// connection.
			c.enqueue(func() {
				if gen == c.gen {
					c.events.OnError(decodeErr)
				}
			})
			continue
		}
		c.enqueue(func() { c.handleClosed(gen, err) })
		return
	}
}

// handleInbound routes one decoded message to exactly one
// destination: the pending call it answers, the notification sink,
// or the request sink.
func (c *Client) handleInbound(gen uint64, msg *Message) {
	if gen != c.gen {
		// Read on a superseded connection; a call with the same
		// id may by now be pending on the current one.
		logger.Tracef("discarding %q from superseded connection", msg.Method)
		return
	}
	switch {
	case msg.IsResponse():
		id := *msg.ID
		var result json.RawMessage
		var err error
		if msg.Error != nil {
			err = msg.Error
		} else {
			result = msg.Result
		}
		if !c.pending.resolve(id, result, err) {
			c.events.OnError(errors.Annotatef(ErrStrayResponse, "request id %d", id))
		}
	case msg.IsRequest():
		c.events.OnRequest(msg)
	case msg.IsNotification():
		c.events.OnNotification(msg.Method, msg.Params)
	default:
		// Codecs validate envelope shape, so this is a codec
		// bug rather than bad wire data.
		c.events.OnError(errors.Errorf("inbound message is neither response, request nor notification"))
	}
}

func (c *Client) handleClosed(gen uint64, cause error) {
	if gen != c.gen {
		return
	}
	c.completeClose(cause)
}

// completeClose finishes the transition to Disconnected: it releases
// the transport, resolves every pending call with ErrConnectionLost
// and reports the close to the sink.
func (c *Client) completeClose(cause error) {
	local := c.State() == Closing
	if c.codec != nil {
		// Release the transport unless Disconnect already did.
		if !local {
			c.codec.Close()
		}
		c.codec = nil
	}
	c.gen++
	c.setState(Disconnected)
	c.pending.resolveAll(ErrConnectionLost)

	var code int
	var reason string
	var closed *ClosedError
	if errors.As(cause, &closed) {
		code = closed.Code
		reason = closed.Reason
	} else if !local && cause != nil {
		reason = cause.Error()
	}
	c.events.OnClosed(code, reason, !local)
}
