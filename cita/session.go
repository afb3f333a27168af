package cita

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Session holds the settings the CLI remembers between runs
type Session struct {
	URL     string `yaml:"url,omitempty"`
	Crypto  string `yaml:"crypto,omitempty"`
	ChainID uint64 `yaml:"chain_id,omitempty"`
	Debug   bool   `yaml:"debug,omitempty"`
	Color   *bool  `yaml:"color,omitempty"`
}

// DefaultSessionPath is ~/.cita-cli/session.yaml
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cita-cli", "session.yaml"), nil
}

// LoadSession reads path; a missing file yields an empty session
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the session, creating the directory if needed
func (s *Session) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ColorEnabled defaults to true
func (s *Session) ColorEnabled() bool {
	return s.Color == nil || *s.Color
}
