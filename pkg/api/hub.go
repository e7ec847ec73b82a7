package api

import (
	"encoding/json"
	"sync"

	"github.com/open-teleop/console/pkg/dof"
	customlog "github.com/open-teleop/console/pkg/log"
)

const clientBufferSize = 256

var _ dof.Display = (*Hub)(nil)

// Hub fans registry changes and operator log lines out to connected
// browser clients. Slow clients lose messages instead of stalling the
// event loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  customlog.Logger
}

type client struct {
	send    chan []byte
	dropped int
}

// NewHub creates an empty hub.
func NewHub(logger customlog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) OnCommandChanged(id dof.ID, value float64) {
	h.broadcast(DofUpdate{Kind: KindCommand, Dof: id.String(), Index: int(id), Value: value})
}

func (h *Hub) OnObservedChanged(id dof.ID, value float64) {
	h.broadcast(DofUpdate{Kind: KindObserved, Dof: id.String(), Index: int(id), Value: value})
}

// PublishLog forwards an operator log line. It is an OperatorLog
// subscriber and must not log above debug level.
func (h *Hub) PublishLog(line string) {
	h.broadcast(LogLine{Kind: KindLog, Line: line})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, clientBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if c.dropped > 0 {
		h.logger.Debugf("Client dropped %d messages", c.dropped)
	}
}

func (h *Hub) broadcast(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Debugf("Failed to marshal hub message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.dropped++
		}
	}
}

// enqueue sends one message to a single client.
func (h *Hub) enqueue(c *client, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Debugf("Failed to marshal client message: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		c.dropped++
	}
}
