// Package teleop assembles the console: one event loop owning the DoF
// registry, the robot connection and the joystick widgets drawn on the
// canvas document.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/open-teleop/console/pkg/canvas"
	"github.com/open-teleop/console/pkg/config"
	"github.com/open-teleop/console/pkg/connection"
	"github.com/open-teleop/console/pkg/display"
	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/joystick"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/pkg/processing"
)

// ErrUnknownCanvas is returned for input or snapshots addressed to a canvas
// the layout does not define.
var ErrUnknownCanvas = errors.New("unknown canvas")

// simulatePeriod is the indicator simulation step interval.
const simulatePeriod = 100 * time.Millisecond

// Options configures a Console.
type Options struct {
	PeerAddress       string
	SendPeriod        time.Duration
	QueueSize         int
	Touch             bool
	SimulateIndicator bool
	Dialer            connection.Dialer
	// Displays receive every registry change, on the event loop.
	Displays []dof.Display
}

// WidgetInfo describes a widget for clients laying out the page.
type WidgetInfo struct {
	CanvasID     string `json:"canvas_id"`
	Label        string `json:"label,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DofX         string `json:"dof_x"`
	DofY         string `json:"dof_y"`
	Mode         string `json:"mode"`
	CenterSpring bool   `json:"center_spring"`
	Indicator    bool   `json:"indicator"`
}

// State is a consistent snapshot of the registry and link.
type State struct {
	Set         [dof.Count]float64 `json:"set"`
	Observed    [dof.Count]float64 `json:"cur"`
	Connected   bool               `json:"connected"`
	TimerActive bool               `json:"timer_active"`
	Address     string             `json:"address"`
}

// Console is the application context. Everything it owns is mutated on its
// event loop; its exported methods may be called from any goroutine.
type Console struct {
	logger   customlog.Logger
	loop     *processing.EventLoop
	registry *dof.Registry
	manager  *connection.Manager
	document *canvas.Document
	table    *display.Table

	widgets []*joystick.Joystick
	infos   []WidgetInfo
	byID    map[string]*joystick.Joystick

	simulate bool
	simStop  chan struct{}
	simWG    sync.WaitGroup
}

// NewConsole builds the widgets of layout and wires them to a new registry
// and connection manager. Nothing runs until Start.
func NewConsole(layout *config.Config, opts Options, logger customlog.Logger) (*Console, error) {
	if layout == nil {
		return nil, errors.New("layout cannot be nil")
	}
	if opts.Dialer == nil {
		return nil, errors.New("dialer cannot be nil")
	}
	address := opts.PeerAddress
	if layout.PeerAddress != "" {
		address = layout.PeerAddress
	}

	c := &Console{
		logger:   logger,
		loop:     processing.NewEventLoop("console", opts.QueueSize, logger),
		registry: dof.NewRegistry(logger),
		document: canvas.NewDocument(opts.Touch),
		table:    display.NewTable(),
		byID:     make(map[string]*joystick.Joystick),
		simulate: opts.SimulateIndicator,
	}
	c.manager = connection.NewManager(address, opts.SendPeriod, c.registry, opts.Dialer, c.loop, logger.WithField("component", "connection"))
	c.registry.SetSender(c.manager)
	c.registry.AddDisplay(c.table)
	for _, d := range opts.Displays {
		c.registry.AddDisplay(d)
	}

	for _, w := range layout.Widgets {
		jc, err := w.JoystickConfig()
		if err != nil {
			return nil, fmt.Errorf("widget %q: %w", w.CanvasID, err)
		}
		c.document.AddCanvas(jc.CanvasID)
		binding := dof.Binding{Registry: c.registry, X: jc.DofX, Y: jc.DofY}
		j, err := joystick.New(jc, c.document, binding, logger.WithField("widget", jc.CanvasID))
		if err != nil {
			return nil, err
		}
		c.registry.AttachIndicator(j)
		c.widgets = append(c.widgets, j)
		c.byID[jc.CanvasID] = j
		c.infos = append(c.infos, WidgetInfo{
			CanvasID:     jc.CanvasID,
			Label:        w.Label,
			Width:        jc.Width,
			Height:       jc.Height,
			DofX:         jc.DofX.String(),
			DofY:         jc.DofY.String(),
			Mode:         jc.Mode.String(),
			CenterSpring: jc.CenterSpring,
			Indicator:    jc.Indicator,
		})
	}

	logger.Infof("Console loaded with %d widgets, peer %s", len(c.widgets), address)
	return c, nil
}

// Start runs the event loop and, if enabled, the indicator simulation.
func (c *Console) Start() {
	c.loop.Start()
	if c.simulate {
		c.simStop = make(chan struct{})
		c.simWG.Add(1)
		go c.runSimulation()
	}
}

// Stop closes the robot link and drains the event loop.
func (c *Console) Stop() {
	if c.simStop != nil {
		close(c.simStop)
		c.simWG.Wait()
		c.simStop = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.loop.Do(ctx, func() error { c.manager.Close(); return nil }); err != nil {
		c.logger.Warnf("Closing connection: %v", err)
	}
	c.loop.Stop()
}

// Loop returns the event loop, for collaborators that post their own work.
func (c *Console) Loop() *processing.EventLoop {
	return c.loop
}

// Table returns the DoF table display.
func (c *Console) Table() *display.Table {
	return c.table
}

// Widgets describes the widgets in layout order.
func (c *Console) Widgets() []WidgetInfo {
	out := make([]WidgetInfo, len(c.infos))
	copy(out, c.infos)
	return out
}

// Widget returns the widget drawn on canvasID. Its methods must only be
// called on the event loop.
func (c *Console) Widget(canvasID string) (*joystick.Joystick, bool) {
	j, ok := c.byID[canvasID]
	return j, ok
}

// HandlePointer queues a pointer event for the widget on canvasID.
func (c *Console) HandlePointer(canvasID string, ev joystick.PointerEvent) error {
	if _, ok := c.byID[canvasID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCanvas, canvasID)
	}
	if !c.loop.Post(func() { c.document.Dispatch(canvasID, ev) }) {
		return processing.ErrQueueFull
	}
	return nil
}

// State returns the registry vectors and link status.
func (c *Console) State(ctx context.Context) (State, error) {
	var s State
	err := c.loop.Do(ctx, func() error {
		s = State{
			Set:         c.registry.Commands(),
			Observed:    c.registry.Observed(),
			Connected:   c.manager.Connected(),
			TimerActive: c.manager.TimerActive(),
			Address:     c.manager.Address(),
		}
		return nil
	})
	return s, err
}

// Snapshot copies the current raster of canvasID.
func (c *Console) Snapshot(ctx context.Context, canvasID string) (*image.RGBA, error) {
	r, ok := c.document.Raster(canvasID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCanvas, canvasID)
	}
	var img *image.RGBA
	err := c.loop.Do(ctx, func() error {
		img = r.Snapshot()
		return nil
	})
	return img, err
}

// Connect is the operator's connect action. A non-empty address replaces
// the peer address first. connection.ErrNotOpen means the attempt is still
// in progress.
func (c *Console) Connect(ctx context.Context, address string) error {
	return c.loop.Do(ctx, func() error {
		return c.manager.Reconnect(address)
	})
}

// PublishPeerAddress switches the address used by the next reconnect.
func (c *Console) PublishPeerAddress(address string) error {
	if !c.loop.Post(func() { c.manager.SetAddress(address) }) {
		return processing.ErrQueueFull
	}
	return nil
}

func (c *Console) runSimulation() {
	defer c.simWG.Done()
	ticker := time.NewTicker(simulatePeriod)
	defer ticker.Stop()

	c.logger.Infof("Indicator simulation enabled")
	for {
		select {
		case <-c.simStop:
			return
		case <-ticker.C:
			c.loop.Post(c.simulateStep)
		}
	}
}

func (c *Console) simulateStep() {
	for _, j := range c.widgets {
		if j.Config().Indicator {
			j.SimulateIndicator()
		}
	}
}
