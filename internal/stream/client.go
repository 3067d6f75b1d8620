// Package stream owns the persistent websocket channel to the agent
// backend: connect on first send, decode inbound frames into wire events,
// and report the channel's lifecycle alongside them.
package stream

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"quorum-cli/internal/wire"
)

// Status is the connection lifecycle. idle and error are re-enterable;
// connecting only ever happens inside a send.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusError      Status = "error"
)

// Logger is the slice of the app logger the client needs.
type Logger interface {
	Error(message string, fields map[string]interface{})
}

// Envelope is one delivery from the read loop: either a decoded event, or
// (Closed) the reason the channel ended and the status it left behind.
type Envelope struct {
	Event  wire.Event
	Closed bool
	Status Status
	Err    error

	// Gen identifies the connection that produced the envelope. Events a
	// dead connection left buffered carry a stale Gen; consumers compare
	// against Client.Gen and discard mismatches.
	Gen int
}

// Client manages one websocket channel. Send dials lazily; the read loop
// pushes envelopes, in arrival order, onto a single channel the UI drains.
type Client struct {
	url    string
	dialer *websocket.Dialer
	log    Logger

	events chan Envelope

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status
	// gen invalidates a read loop that outlives its connection, so a
	// deliberate Close or a later reconnect is never double-reported.
	gen int
}

func NewClient(url string, log Logger) *Client {
	return &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    log,
		events: make(chan Envelope, 256),
		status: StatusIdle,
	}
}

// Events delivers decoded events and close notices in arrival order. The
// channel is owned by the client and survives reconnects.
func (c *Client) Events() <-chan Envelope { return c.events }

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Gen returns the current connection generation. Close and reconnect both
// advance it.
func (c *Client) Gen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Send transmits one user turn. With no open channel it dials first and the
// prompt becomes the connection's first message, sent exactly once; with an
// open channel it writes immediately.
func (c *Client) Send(p wire.Prompt) error {
	c.mu.Lock()
	if conn := c.conn; conn != nil {
		c.mu.Unlock()
		if err := conn.WriteJSON(p); err != nil {
			c.drop(conn, err)
			return err
		}
		return nil
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.setStatus(StatusError)
		return err
	}
	if err := conn.WriteJSON(p); err != nil {
		conn.Close()
		c.setStatus(StatusError)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.status = StatusStreaming
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	return nil
}

// Close tears the channel down deliberately: status returns to idle and the
// read loop is orphaned so it reports nothing. The timeline upstream is left
// untouched.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.gen++
	c.status = StatusIdle
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// drop handles a write failure on an established connection.
func (c *Client) drop(conn *websocket.Conn, err error) {
	conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.gen++
		c.status = StatusError
	}
	c.mu.Unlock()
	if c.log != nil {
		c.log.Error("websocket write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn, gen, err)
			return
		}
		ev, derr := wire.Decode(data)
		if derr != nil {
			// Malformed frame: log and drop without disturbing
			// the channel or the timeline.
			if c.log != nil {
				c.log.Error("dropping malformed frame", map[string]interface{}{
					"error":   derr.Error(),
					"payload": truncate(string(data), 200),
				})
			}
			continue
		}
		c.events <- Envelope{Event: ev, Gen: gen}
	}
}

func (c *Client) teardown(conn *websocket.Conn, gen int, err error) {
	conn.Close()
	c.mu.Lock()
	if gen != c.gen {
		// A deliberate Close or a newer connection superseded us.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if expectedClose(err) {
		c.status = StatusIdle
		err = nil
	} else {
		c.status = StatusError
	}
	st := c.status
	c.mu.Unlock()
	c.events <- Envelope{Closed: true, Status: st, Err: err, Gen: gen}
}

// expectedClose distinguishes the server finishing a conversation from a
// transport failure. The backend closes the socket after system_end.
func expectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
