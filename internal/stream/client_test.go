package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quorum-cli/internal/wire"
)

var upgrader = websocket.Upgrader{}

// newWSServer runs handler for each websocket connection and returns a
// ws:// URL pointing at it.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recv(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case env := <-c.Events():
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
		return Envelope{}
	}
}

func TestSendDialsAndStreamsEvents(t *testing.T) {
	prompts := make(chan wire.Prompt, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		var p wire.Prompt
		if err := conn.ReadJSON(&p); err != nil {
			t.Errorf("read prompt: %v", err)
			return
		}
		prompts <- p

		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"agent_start","agent":"Eleanor"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"final_answer"`)) // malformed, must be dropped
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"final_answer","content":"done"}`))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	})

	c := NewClient(url, nil)
	if got := c.Status(); got != StatusIdle {
		t.Fatalf("initial status = %q", got)
	}
	if err := c.Send(wire.Prompt{Prompt: "hello", UserID: "u-1", ThreadID: "t-1"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := c.Status(); got != StatusStreaming {
		t.Fatalf("status after send = %q", got)
	}

	select {
	case p := <-prompts:
		if p.Prompt != "hello" || p.UserID != "u-1" || p.ThreadID != "t-1" {
			t.Fatalf("server saw prompt %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the prompt")
	}

	if env := recv(t, c); env.Closed || env.Event.Kind != wire.KindAgentStart {
		t.Fatalf("first envelope = %+v", env)
	}
	// The malformed frame is dropped; the next envelope is the final answer.
	if env := recv(t, c); env.Closed || env.Event.Kind != wire.KindFinalAnswer || env.Event.Content != "done" {
		t.Fatalf("second envelope = %+v", env)
	}

	env := recv(t, c)
	if !env.Closed || env.Err != nil || env.Status != StatusIdle {
		t.Fatalf("close envelope = %+v", env)
	}
	if got := c.Status(); got != StatusIdle {
		t.Fatalf("status after close = %q", got)
	}
}

func TestSendOnOpenChannelWritesImmediately(t *testing.T) {
	prompts := make(chan wire.Prompt, 2)
	url := newWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var p wire.Prompt
			if err := conn.ReadJSON(&p); err != nil {
				return
			}
			prompts <- p
		}
	})

	c := NewClient(url, nil)
	if err := c.Send(wire.Prompt{Prompt: "first"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := c.Send(wire.Prompt{Prompt: "second"}); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	for _, want := range []string{"first", "second"} {
		select {
		case p := <-prompts:
			if p.Prompt != want {
				t.Fatalf("got prompt %q, want %q", p.Prompt, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("server never received %q", want)
		}
	}
}

func TestDialFailureSetsErrorStatus(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", nil)
	if err := c.Send(wire.Prompt{Prompt: "hello"}); err == nil {
		t.Fatal("expected dial error")
	}
	if got := c.Status(); got != StatusError {
		t.Fatalf("status = %q, want error", got)
	}
}

func TestCloseIsSilentAndIdle(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var p wire.Prompt
		_ = conn.ReadJSON(&p)
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewClient(url, nil)
	if err := c.Send(wire.Prompt{Prompt: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := c.Status(); got != StatusIdle {
		t.Fatalf("status after close = %q", got)
	}

	// A deliberate close must not surface as a channel event.
	select {
	case env := <-c.Events():
		t.Fatalf("unexpected envelope after close: %+v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseMarksBufferedEventsStale(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var p wire.Prompt
		_ = conn.ReadJSON(&p)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"agent_start","agent":"Eleanor"}`))
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewClient(url, nil)
	if err := c.Send(wire.Prompt{Prompt: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Let the event land in the buffer without consuming it.
	deadline := time.Now().Add(2 * time.Second)
	for len(c.events) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never buffered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// The event written before the close still comes out of the channel,
	// but its generation no longer matches, so consumers can discard it.
	env := recv(t, c)
	if env.Closed || env.Event.Kind != wire.KindAgentStart {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Gen == c.Gen() {
		t.Fatalf("buffered event generation %d still reads as current", env.Gen)
	}
}

func TestAbruptDisconnectReportsError(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		var p wire.Prompt
		_ = conn.ReadJSON(&p)
		// Drop the TCP connection with no close handshake.
		conn.Close()
	})

	c := NewClient(url, nil)
	if err := c.Send(wire.Prompt{Prompt: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	env := recv(t, c)
	if !env.Closed || env.Status != StatusError || env.Err == nil {
		t.Fatalf("envelope = %+v, want error close", env)
	}
	if got := c.Status(); got != StatusError {
		t.Fatalf("status = %q, want error", got)
	}
}
