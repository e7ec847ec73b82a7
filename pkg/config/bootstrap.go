package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the name of the bootstrap file inside the config dir.
const BootstrapFilename = "console_config.yaml"

// BootstrapConfig holds the initial configuration loaded from console_config.yaml
type BootstrapConfig struct {
	Logging   LoggingConfig         `yaml:"logging"`
	Server    BootstrapServerConfig `yaml:"server"`
	Peer      PeerConfig            `yaml:"peer"`
	EventLoop EventLoopConfig       `yaml:"event_loop"`
	Input     InputConfig           `yaml:"input"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Gamepad   GamepadConfig         `yaml:"gamepad"`
	Data      DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
	// OperatorLines is how many operator log lines are retained.
	OperatorLines int `yaml:"operator_lines"`
}

// BootstrapServerConfig holds the HTTP listener settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// PeerConfig describes the robot link
type PeerConfig struct {
	Address            string `yaml:"address"`
	SendPeriodMs       int    `yaml:"send_period_ms"`
	HandshakeTimeoutMs int    `yaml:"handshake_timeout_ms"`
}

// EventLoopConfig sizes the console event loop
type EventLoopConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// InputConfig selects how widgets read pointer input
type InputConfig struct {
	Touch             bool `yaml:"touch"`
	SimulateIndicator bool `yaml:"simulate_indicator"`
}

// TelemetryConfig holds the ZeroMQ telemetry publisher settings
type TelemetryConfig struct {
	Enabled            bool   `yaml:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address"`
	Topic              string `yaml:"topic"`
}

// GamepadConfig binds an optional hardware gamepad to one widget
type GamepadConfig struct {
	Enabled        bool    `yaml:"enabled"`
	DeviceIndex    int     `yaml:"device_index"`
	Widget         string  `yaml:"widget"`
	AxisX          int     `yaml:"axis_x"`
	AxisY          int     `yaml:"axis_y"`
	Deadzone       float64 `yaml:"deadzone"`
	PollIntervalMs int     `yaml:"poll_interval_ms"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory      string `yaml:"directory"`
	LayoutFilename string `yaml:"layout_file"`
}

// LayoutPath returns the full path of the layout file.
func (d DataConfig) LayoutPath() string {
	return filepath.Join(d.Directory, d.LayoutFilename)
}

// LoadBootstrapConfig loads the bootstrap configuration from console_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Peer.Address == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: peer.address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.LayoutFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.layout_file")
	}
	if bootstrapCfg.Telemetry.Enabled && bootstrapCfg.Telemetry.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: telemetry.publish_bind_address")
	}
	if bootstrapCfg.Gamepad.Enabled && bootstrapCfg.Gamepad.Widget == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: gamepad.widget")
	}

	bootstrapCfg.applyDefaults()
	return &bootstrapCfg, nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.OperatorLines <= 0 {
		c.Logging.OperatorLines = 200
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Peer.SendPeriodMs <= 0 {
		c.Peer.SendPeriodMs = 1000
	}
	if c.Peer.HandshakeTimeoutMs <= 0 {
		c.Peer.HandshakeTimeoutMs = 5000
	}
	if c.EventLoop.QueueSize <= 0 {
		c.EventLoop.QueueSize = 1024
	}
	if c.Telemetry.Topic == "" {
		c.Telemetry.Topic = "console.dof"
	}
	if c.Gamepad.AxisY == 0 && c.Gamepad.AxisX == 0 {
		c.Gamepad.AxisY = 1
	}
	if c.Gamepad.Deadzone <= 0 {
		c.Gamepad.Deadzone = 0.08
	}
	if c.Gamepad.PollIntervalMs <= 0 {
		c.Gamepad.PollIntervalMs = 20
	}
}
