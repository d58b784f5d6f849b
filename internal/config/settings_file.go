package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"AlcoMonitorAPI/internal/models"

	"gopkg.in/yaml.v3"
)

// SettingsFile persists the operator settings as YAML.
type SettingsFile struct {
	path string
}

func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

func (f *SettingsFile) Path() string { return f.path }

// Load returns defaults when the file does not exist. Keys absent from the
// file keep their defaults.
func (f *SettingsFile) Load() (models.Settings, error) {
	settings := models.DefaultSettings()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file %s: %w", f.path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return models.DefaultSettings(), fmt.Errorf("failed to decode settings file %s: %w", f.path, err)
	}

	if err := settings.Validate(); err != nil {
		return models.DefaultSettings(), fmt.Errorf("invalid settings file %s: %w", f.path, err)
	}

	return settings, nil
}

// Save writes through a temp file and rename.
func (f *SettingsFile) Save(s models.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
