package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/domain/teleop"
	"github.com/open-teleop/console/pkg/canvas"
	"github.com/open-teleop/console/pkg/connection"
	"github.com/open-teleop/console/pkg/display"
	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/joystick"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

// requestTimeout bounds how long a handler waits for the event loop.
const requestTimeout = 2 * time.Second

// ConsoleService is the console as seen by the HTTP layer.
type ConsoleService interface {
	Widgets() []teleop.WidgetInfo
	State(ctx context.Context) (teleop.State, error)
	Snapshot(ctx context.Context, canvasID string) (*image.RGBA, error)
	Connect(ctx context.Context, address string) error
	HandlePointer(canvasID string, ev joystick.PointerEvent) error
	Table() *display.Table
}

// LogSource exposes the retained operator log.
type LogSource interface {
	Lines() []string
}

// ConsoleHandler holds dependencies for the console API endpoints.
type ConsoleHandler struct {
	console ConsoleService
	logs    LogSource
	logger  customlog.Logger
}

// RegisterConsoleRoutes registers the DoF, canvas, connect, input and log
// endpoints under /api/v1.
func RegisterConsoleRoutes(app *fiber.App, console ConsoleService, logs LogSource, logger customlog.Logger) {
	h := &ConsoleHandler{console: console, logs: logs, logger: logger}

	apiGroup := app.Group("/api/v1")
	apiGroup.Get("/dof", h.handleGetDof)
	apiGroup.Get("/dof/table", h.handleGetDofTable)
	apiGroup.Get("/widgets", h.handleGetWidgets)
	apiGroup.Get("/canvas/:id", h.handleGetCanvas)
	apiGroup.Post("/input", h.handlePostInput)
	apiGroup.Post("/connect", h.handleConnect)
	apiGroup.Get("/log", h.handleGetLog)

	logger.Infof("Registered console API endpoints under /api/v1")
}

func (h *ConsoleHandler) handleGetDof(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	s, err := h.console.State(ctx)
	if err != nil {
		return loopError(err)
	}
	return c.JSON(DofResponse{
		Names:       dof.Names(),
		Set:         s.Set[:],
		Cur:         s.Observed[:],
		Connected:   s.Connected,
		TimerActive: s.TimerActive,
		Address:     s.Address,
	})
}

func (h *ConsoleHandler) handleGetDofTable(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(h.console.Table().Render() + "\n")
}

func (h *ConsoleHandler) handleGetWidgets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"widgets": h.console.Widgets()})
}

func (h *ConsoleHandler) handleGetCanvas(c *fiber.Ctx) error {
	format := c.Query("format", canvas.FormatWebP)
	if format != canvas.FormatWebP && format != canvas.FormatPNG {
		return fiber.NewError(http.StatusBadRequest, "format must be webp or png")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	img, err := h.console.Snapshot(ctx, c.Params("id"))
	if err != nil {
		if errors.Is(err, teleop.ErrUnknownCanvas) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return loopError(err)
	}

	var buf bytes.Buffer
	if err := canvas.Encode(&buf, img, format); err != nil {
		h.logger.Errorf("Failed to encode canvas snapshot: %v", err)
		return fiber.NewError(http.StatusInternalServerError, "failed to encode snapshot")
	}
	c.Set(fiber.HeaderContentType, canvas.ContentType(format))
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(buf.Bytes())
}

func (h *ConsoleHandler) handlePostInput(c *fiber.Ctx) error {
	var in InputMessage
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed input event")
	}
	if err := h.console.HandlePointer(in.Canvas, in.PointerEvent()); err != nil {
		if errors.Is(err, teleop.ErrUnknownCanvas) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return loopError(err)
	}
	return c.SendStatus(http.StatusAccepted)
}

func (h *ConsoleHandler) handleConnect(c *fiber.Ctx) error {
	var req ConnectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "malformed connect request")
		}
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	err := h.console.Connect(ctx, req.Address)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "connected"})
	case errors.Is(err, connection.ErrNotOpen):
		return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "connecting"})
	default:
		return loopError(err)
	}
}

func (h *ConsoleHandler) handleGetLog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"lines": h.logs.Lines()})
}

// loopError maps event loop failures to HTTP errors.
func loopError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(http.StatusGatewayTimeout, "console busy")
	case errors.Is(err, processing.ErrQueueFull), errors.Is(err, processing.ErrLoopStopped):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// ErrorHandler renders errors as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
