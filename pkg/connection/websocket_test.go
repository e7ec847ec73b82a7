package connection

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/sirupsen/logrus/hooks/test"

	customlog "github.com/open-teleop/console/pkg/log"
)

type chanEvents struct {
	opened   chan struct{}
	messages chan string
	closed   chan struct{}
	errs     chan error
}

func newChanEvents() *chanEvents {
	return &chanEvents{
		opened:   make(chan struct{}, 1),
		messages: make(chan string, 8),
		closed:   make(chan struct{}, 1),
		errs:     make(chan error, 4),
	}
}

func (e *chanEvents) OnOpen()                { e.opened <- struct{}{} }
func (e *chanEvents) OnError(err error)      { e.errs <- err }
func (e *chanEvents) OnMessage(frame string) { e.messages <- frame }
func (e *chanEvents) OnClose()               { e.closed <- struct{}{} }

func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wait[T any](t *testing.T, c <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestWebSocketDialerEcho(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	l, _ := test.NewNullLogger()
	d := NewWebSocketDialer(time.Second, customlog.NewFromLogrus(l))
	events := newChanEvents()
	ch := d.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), events)

	wait(t, events.opened, "open")
	if ch.State() != Open {
		t.Fatalf("Expected open state, got %s", ch.State())
	}
	if err := ch.Send("@1,2,t:3"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := wait(t, events.messages, "echo"); got != "@1,2,t:3" {
		t.Errorf("Expected echoed frame, got %q", got)
	}

	if err := ch.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	wait(t, events.closed, "close")
	if ch.State() != Closed {
		t.Errorf("Expected closed state, got %s", ch.State())
	}
}

func TestWebSocketDialerUnreachable(t *testing.T) {
	l, _ := test.NewNullLogger()
	d := NewWebSocketDialer(200*time.Millisecond, customlog.NewFromLogrus(l))
	events := newChanEvents()
	ch := d.Dial("ws://127.0.0.1:1/", events)

	wait(t, events.errs, "dial error")
	wait(t, events.closed, "close")
	if ch.State() != Closed {
		t.Errorf("Expected closed state, got %s", ch.State())
	}
	if err := ch.Send("x"); err == nil {
		t.Errorf("Expected send on a closed channel to fail")
	}
}
