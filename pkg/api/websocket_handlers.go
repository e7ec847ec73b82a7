package api

import (
	"encoding/json"
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/pkg/dof"
	customlog "github.com/open-teleop/console/pkg/log"
)

// RegisterWebSocketRoutes mounts the browser input socket on /ws/input.
func RegisterWebSocketRoutes(app *fiber.App, console ConsoleService, hub *Hub, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/input", websocket.New(func(conn *websocket.Conn) {
		InputWebSocketHandler(conn, console, hub, logger)
	}))

	logger.Infof("Registered input WebSocket endpoint at /ws/input")
}

// InputWebSocketHandler reads pointer events from one browser and streams
// registry and log updates back to it.
func InputWebSocketHandler(conn *websocket.Conn, console ConsoleService, hub *Hub, logger customlog.Logger) {
	logger.Infof("Input WebSocket connected: %s", conn.RemoteAddr())

	c := hub.register()
	hub.enqueue(c, LayoutMessage{Kind: KindLayout, Widgets: console.Widgets(), Names: dof.Names()})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for data := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debugf("Input WS write error: %v", err)
				// Keep draining until unregister closes the channel.
				for range c.send {
				}
				return
			}
		}
	}()

	defer func() {
		hub.unregister(c)
		<-writerDone
		logger.Infof("Input WebSocket disconnected: %s", conn.RemoteAddr())
	}()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("Input WS read error: %v", err)
			} else if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				logger.Debugf("Input WS connection closed: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			logger.Debugf("Ignoring non-text input WS message type: %d", mt)
			continue
		}

		var in InputMessage
		if err := json.Unmarshal(msg, &in); err != nil {
			logger.Warnf("Failed to unmarshal input event: %v. Message: %s", err, string(msg))
			hub.enqueue(c, ErrorMessage{Kind: KindError, Error: "malformed input event"})
			continue
		}
		if err := console.HandlePointer(in.Canvas, in.PointerEvent()); err != nil {
			logger.Warnf("Rejected input event for canvas '%s': %v", in.Canvas, err)
			hub.enqueue(c, ErrorMessage{Kind: KindError, Error: err.Error()})
		}
	}
}
