package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"

	customlog "github.com/open-teleop/console/pkg/log"
)

// WebSocketDialer opens robot channels as WebSocket text connections.
type WebSocketDialer struct {
	dialer *websocket.Dialer
	logger customlog.Logger
}

// NewWebSocketDialer creates a dialer with the given handshake timeout.
func NewWebSocketDialer(handshakeTimeout time.Duration, logger customlog.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// Dial starts connecting to address in the background and returns at once.
func (d *WebSocketDialer) Dial(address string, events Events) Channel {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &wsChannel{
		events: events,
		cancel: cancel,
		logger: d.logger.WithField("peer", address),
	}
	ch.state.Store(int32(Connecting))
	go ch.run(ctx, d.dialer, address)
	return ch
}

type wsChannel struct {
	state  atomic.Int32
	mu     sync.Mutex
	conn   *websocket.Conn
	events Events
	cancel context.CancelFunc
	logger customlog.Logger
}

func (c *wsChannel) State() State {
	return State(c.state.Load())
}

func (c *wsChannel) Send(frame string) error {
	if c.State() != Open {
		return ErrNotOpen
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("write websocket message: %w", err)
	}
	return nil
}

func (c *wsChannel) Close() error {
	prev := State(c.state.Swap(int32(Closing)))
	if prev == Closed {
		c.state.Store(int32(Closed))
		return nil
	}
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *wsChannel) run(ctx context.Context, dialer *websocket.Dialer, address string) {
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		c.state.Store(int32(Closed))
		c.events.OnError(fmt.Errorf("dial %s: %w", address, err))
		c.events.OnClose()
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(Connecting), int32(Open)) {
		// Closed while the handshake was in flight.
		_ = conn.Close()
		c.state.Store(int32(Closed))
		c.events.OnClose()
		return
	}
	c.logger.Debugf("WebSocket handshake complete")
	c.events.OnOpen()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.State() != Closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.events.OnError(fmt.Errorf("read websocket message: %w", err))
			}
			break
		}
		c.events.OnMessage(string(data))
	}

	c.state.Store(int32(Closed))
	_ = conn.Close()
	c.events.OnClose()
}
