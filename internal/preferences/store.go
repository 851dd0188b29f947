// internal/preferences/store.go
package preferences

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	keyAutoConnect   = "auto_connect"
	keyAgentEndpoint = "agent_endpoint"
)

// Preferences are the locally persisted printer preferences
type Preferences struct {
	AutoConnect   bool   `json:"auto_connect" mapstructure:"auto_connect"`
	AgentEndpoint string `json:"agent_endpoint" mapstructure:"agent_endpoint"`
}

// Store keeps preferences in a YAML file
type Store struct {
	mu     sync.RWMutex
	path   string
	v      *viper.Viper
	logger *zap.Logger
}

// NewStore loads preferences from path. A missing file yields defaults.
func NewStore(path string, defaults Preferences, logger *zap.Logger) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(keyAutoConnect, defaults.AutoConnect)
	v.SetDefault(keyAgentEndpoint, defaults.AgentEndpoint)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read preferences: %w", err)
		}
	}

	return &Store{
		path:   path,
		v:      v,
		logger: logger.With(zap.String("component", "preferences"), zap.String("path", path)),
	}, nil
}

// Get returns the current preferences
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Preferences{
		AutoConnect:   s.v.GetBool(keyAutoConnect),
		AgentEndpoint: s.v.GetString(keyAgentEndpoint),
	}
}

// Save replaces and persists the preferences
func (s *Store) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(keyAutoConnect, p.AutoConnect)
	s.v.Set(keyAgentEndpoint, p.AgentEndpoint)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	s.logger.Info("Preferences saved",
		zap.Bool("auto_connect", p.AutoConnect),
		zap.String("agent_endpoint", p.AgentEndpoint),
	)
	return nil
}

// SetAutoConnect persists only the auto-connect flag
func (s *Store) SetAutoConnect(enabled bool) error {
	p := s.Get()
	p.AutoConnect = enabled
	return s.Save(p)
}
