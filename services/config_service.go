package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
)

// ErrInvalidConfig wraps every rejection of a submitted layout.
var ErrInvalidConfig = errors.New("invalid configuration")

// AddressPublisher receives the peer address of a newly applied layout.
type AddressPublisher interface {
	PublishPeerAddress(address string) error
}

// ConsoleConfigService manages the operational console layout.
type ConsoleConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p AddressPublisher)
}

type consoleConfigService struct {
	layoutPath    string
	logger        customlog.Logger
	publisher     AddressPublisher
	currentConfig *config.Config
	mu            sync.RWMutex
}

// NewConsoleConfigService creates the service and loads the layout at
// layoutPath. A missing file is seeded with config.DefaultLayout.
func NewConsoleConfigService(layoutPath string, logger customlog.Logger) (ConsoleConfigService, error) {
	if layoutPath == "" {
		return nil, fmt.Errorf("layout configuration path cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	service := &consoleConfigService{
		layoutPath: layoutPath,
		logger:     logger,
	}

	if _, err := os.Stat(layoutPath); errors.Is(err, os.ErrNotExist) {
		logger.Infof("Layout file '%s' not found, writing default layout", layoutPath)
		data, err := config.DefaultLayout().Marshal()
		if err != nil {
			return nil, fmt.Errorf("error encoding default layout: %w", err)
		}
		if err := service.PersistConfig(data); err != nil {
			return nil, err
		}
	}

	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	logger.Infof("ConsoleConfigService initialized successfully for path: %s", layoutPath)
	return service, nil
}

// LoadConfig reads and validates the layout file.
func (s *consoleConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading console layout from: %s", s.layoutPath)
	cfg, err := config.LoadConfig(s.layoutPath)
	if err != nil {
		s.logger.Errorf("Error loading layout file '%s': %v", s.layoutPath, err)
		return fmt.Errorf("error loading layout file '%s': %w", s.layoutPath, err)
	}

	s.currentConfig = cfg
	s.logger.Infof("Successfully loaded console layout ID: %s, Version: %s, %d widgets", cfg.ConfigID, cfg.Version, len(cfg.Widgets))
	return nil
}

// GetCurrentConfig returns the active layout. Callers must not modify it.
func (s *consoleConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the raw YAML of the layout file.
func (s *consoleConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.layoutPath
	s.mu.RUnlock()

	s.logger.Debugf("Reading raw layout YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Errorf("Error reading layout file '%s' for YAML export: %v", path, err)
		return nil, fmt.Errorf("error reading layout file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies a new layout, then publishes
// its peer address. Widget geometry changes take effect on restart.
func (s *consoleConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Attempting to update console layout from provided YAML")

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Rejected layout update: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if newCfg.ConfigID == "" || newCfg.Version == "" {
		s.logger.Errorf("Validation failed: missing required fields (config_id, version)")
		return fmt.Errorf("%w: missing required fields (config_id, version)", ErrInvalidConfig)
	}

	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	oldCfgID := "N/A"
	oldAddress := ""
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
		oldAddress = s.currentConfig.PeerAddress
	}
	s.currentConfig = newCfg
	s.logger.Infof("Successfully updated and persisted console layout. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	if newCfg.PeerAddress != "" && newCfg.PeerAddress != oldAddress {
		if s.publisher == nil {
			s.logger.Infof("AddressPublisher not configured, skipping peer address update.")
		} else if err := s.publisher.PublishPeerAddress(newCfg.PeerAddress); err != nil {
			s.logger.Warnf("Failed to publish peer address: %v", err)
		}
	}
	s.logger.Infof("Layout updated. Widget changes apply after restart.")
	return nil
}

// PersistConfig writes the given YAML data to the layout file path.
func (s *consoleConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

func (s *consoleConfigService) persistConfigUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting console layout to: %s", s.layoutPath)
	if err := os.WriteFile(s.layoutPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing layout file '%s': %v", s.layoutPath, err)
		return fmt.Errorf("error writing layout file '%s': %w", s.layoutPath, err)
	}
	return nil
}

// SetPublisher injects the AddressPublisher after initialization.
func (s *consoleConfigService) SetPublisher(p AddressPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
	s.logger.Infof("AddressPublisher injected into ConsoleConfigService.")
}
