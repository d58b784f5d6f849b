package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Secrets is the broker account file. JSON files parse as YAML.
type Secrets struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

var requiredSecretKeys = []string{"broker", "port", "username", "password"}

// LoadSecrets reads path. A missing file is not an error and returns nil.
func LoadSecrets(path string) (*Secrets, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode secrets file %s: %w", path, err)
	}

	var missing []string
	for _, key := range requiredSecretKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("secrets file %s is missing required keys: %s", path, strings.Join(missing, ", "))
	}

	var s Secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode secrets file %s: %w", path, err)
	}

	return &s, nil
}

// Apply overrides the broker account in m.
func (s *Secrets) Apply(m *MQTTConfig) {
	m.Broker = s.Broker
	m.Port = s.Port
	m.Username = s.Username
	m.Password = s.Password
}
