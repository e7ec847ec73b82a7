package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/open-teleop/console/pkg/canvas"
	"github.com/open-teleop/console/pkg/dof"
	"github.com/open-teleop/console/pkg/joystick"
)

// Config is the operational console layout: which widgets exist, how they
// look and which DoFs they drive.
type Config struct {
	Version     string         `yaml:"version" json:"version"`
	ConfigID    string         `yaml:"config_id" json:"config_id"`
	LastUpdated string         `yaml:"lastUpdated" json:"lastUpdated"`
	PeerAddress string         `yaml:"peer_address,omitempty" json:"peer_address,omitempty"`
	Widgets     []WidgetConfig `yaml:"widgets" json:"widgets"`
}

// WidgetConfig describes one joystick widget. DoFs are given by name
// ("forward", "pan", ...); an empty name leaves the axis unbound.
type WidgetConfig struct {
	CanvasID        string `yaml:"canvas_id" json:"canvas_id"`
	Label           string `yaml:"label,omitempty" json:"label,omitempty"`
	Width           int    `yaml:"width" json:"width"`
	Height          int    `yaml:"height" json:"height"`
	DofX            string `yaml:"dof_x" json:"dof_x"`
	DofY            string `yaml:"dof_y" json:"dof_y"`
	Mode            string `yaml:"mode" json:"mode"`
	CenterSpring    bool   `yaml:"center_spring" json:"center_spring"`
	Indicator       bool   `yaml:"indicator" json:"indicator"`
	BackgroundColor string `yaml:"background_color" json:"background_color"`
	ConstraintColor string `yaml:"constraint_color" json:"constraint_color"`
	NippleColor     string `yaml:"nipple_color" json:"nipple_color"`
}

// LoadConfig loads the layout from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML layout.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every widget and rejects duplicate canvas ids.
func (c *Config) Validate() error {
	if len(c.Widgets) == 0 {
		return errors.New("layout defines no widgets")
	}
	seen := make(map[string]bool, len(c.Widgets))
	for i, w := range c.Widgets {
		if w.CanvasID == "" {
			return fmt.Errorf("widget %d: missing canvas_id", i)
		}
		if seen[w.CanvasID] {
			return fmt.Errorf("widget %d: duplicate canvas_id %q", i, w.CanvasID)
		}
		seen[w.CanvasID] = true
		if _, err := w.JoystickConfig(); err != nil {
			return fmt.Errorf("widget %q: %w", w.CanvasID, err)
		}
	}
	return nil
}

// GetWidget returns the widget drawn on canvasID.
func (c *Config) GetWidget(canvasID string) (WidgetConfig, bool) {
	for _, w := range c.Widgets {
		if w.CanvasID == canvasID {
			return w, true
		}
	}
	return WidgetConfig{}, false
}

// JoystickConfig resolves names and colours into widget construction
// parameters.
func (w WidgetConfig) JoystickConfig() (joystick.Config, error) {
	if w.Width <= 0 || w.Height <= 0 {
		return joystick.Config{}, fmt.Errorf("invalid size %dx%d", w.Width, w.Height)
	}
	dofX, err := dof.Parse(w.DofX)
	if err != nil {
		return joystick.Config{}, err
	}
	dofY, err := dof.Parse(w.DofY)
	if err != nil {
		return joystick.Config{}, err
	}

	var mode joystick.Mode
	switch w.Mode {
	case "", "rect":
		mode = joystick.Rect
	case "circle":
		mode = joystick.Circle
	default:
		return joystick.Config{}, fmt.Errorf("unknown mode %q", w.Mode)
	}

	bg, err := canvas.ParseColor(w.BackgroundColor)
	if err != nil {
		return joystick.Config{}, fmt.Errorf("background_color: %w", err)
	}
	constraint, err := canvas.ParseColor(w.ConstraintColor)
	if err != nil {
		return joystick.Config{}, fmt.Errorf("constraint_color: %w", err)
	}
	nipple, err := canvas.ParseColor(w.NippleColor)
	if err != nil {
		return joystick.Config{}, fmt.Errorf("nipple_color: %w", err)
	}

	return joystick.Config{
		CanvasID:        w.CanvasID,
		Width:           w.Width,
		Height:          w.Height,
		DofX:            dofX,
		DofY:            dofY,
		Mode:            mode,
		CenterSpring:    w.CenterSpring,
		Indicator:       w.Indicator,
		BackgroundColor: bg,
		ConstraintColor: constraint,
		NippleColor:     nipple,
	}, nil
}

// Marshal renders the layout as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// DefaultLayout is the four-joystick console: driving base, head and both
// arms.
func DefaultLayout() *Config {
	return &Config{
		Version:  "1.0",
		ConfigID: "default-console-layout",
		Widgets: []WidgetConfig{
			{
				CanvasID: "canvasNavJoystick", Label: "Navigation",
				Width: 200, Height: 200,
				DofX: "turn", DofY: "forward",
				Mode: "circle", CenterSpring: true, Indicator: false,
				BackgroundColor: "#eee", ConstraintColor: "#ffc653", NippleColor: "#ffaa00",
			},
			{
				CanvasID: "canvasHeadJoystick", Label: "Head",
				Width: 350, Height: 200,
				DofX: "pan", DofY: "tilt",
				Mode: "rect", CenterSpring: false, Indicator: true,
				BackgroundColor: "#ffd3c2", ConstraintColor: "#ff8453", NippleColor: "#ff4900",
			},
			{
				CanvasID: "canvasLeftArmJoystick", Label: "Left arm",
				Width: 300, Height: 200,
				DofX: "left_shoulder_extension", DofY: "left_shoulder_elevation",
				Mode: "rect", CenterSpring: false, Indicator: true,
				BackgroundColor: "#bccbef", ConstraintColor: "#5278d0", NippleColor: "#0d40b7",
			},
			{
				CanvasID: "canvasRightArmJoystick", Label: "Right arm",
				Width: 300, Height: 200,
				DofX: "right_shoulder_extension", DofY: "right_shoulder_elevation",
				Mode: "rect", CenterSpring: false, Indicator: true,
				BackgroundColor: "#bccbef", ConstraintColor: "#5278d0", NippleColor: "#0d40b7",
			},
		},
	}
}
