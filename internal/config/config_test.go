package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"AlcoMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		MQTT:   MQTTConfig{Port: 1883, Username: "distiller", QoS: 1},
		Monitor: MonitorConfig{
			EvaluationInterval: 2 * time.Second,
			DataTimeout:        time.Minute,
			StoreCapacity:      1000,
		},
		Recorder: RecorderConfig{Enabled: true, MaxBytes: 1024},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.MQTT.Username = ""
	cfg.Database.Enabled = true
	cfg.Security.AuthEnabled = true
	cfg.Monitor.EvaluationInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "MQTT_USERNAME")
	assert.Contains(t, msg, "DB_PASSWORD")
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "ADMIN_PASSWORD_HASH")
	assert.Contains(t, msg, "MONITOR_EVALUATION_INTERVAL")
}

func TestTopicPrefix(t *testing.T) {
	assert.Equal(t, "distiller/", MQTTConfig{Username: "distiller"}.TopicPrefix())
	assert.Equal(t, "", MQTTConfig{}.TopicPrefix())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_DUR", "150ms")

	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("TEST_BAD_INT", 1))
	assert.Equal(t, 150*time.Millisecond, getEnvAsDuration("TEST_DUR", "1s"))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_MISSING_DUR", "1s"))
	assert.True(t, getEnvAsBool("TEST_MISSING_BOOL", true))
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadSecrets(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, s)

	path := filepath.Join(dir, "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"broker": "m5.wqtt.ru", "port": 5000, "username": "distiller", "password": "pw"}`), 0600))

	s, err = LoadSecrets(path)
	require.NoError(t, err)
	require.NotNil(t, s)

	var m MQTTConfig
	s.Apply(&m)
	assert.Equal(t, "m5.wqtt.ru", m.Broker)
	assert.Equal(t, 5000, m.Port)
	assert.Equal(t, "distiller", m.Username)
	assert.Equal(t, "pw", m.Password)
}

func TestLoadSecrets_MissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"broker": "localhost"}`), 0600))

	_, err := LoadSecrets(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port, username, password")
}

func TestSettingsFile(t *testing.T) {
	f := NewSettingsFile(filepath.Join(t.TempDir(), "conf", "settings.yaml"))

	s, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), s)

	s.KubThreshold = 65.5
	s.PeriodSeconds = 120
	require.NoError(t, f.Save(s))

	loaded, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettingsFile_PartialAndInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	f := NewSettingsFile(path)

	require.NoError(t, os.WriteFile(path, []byte("delta_t: 0.5\n"), 0644))
	s, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.DeltaT)
	assert.Equal(t, models.DefaultKubThreshold, s.KubThreshold)

	require.NoError(t, os.WriteFile(path, []byte("period_seconds: 0\n"), 0644))
	_, err = f.Load()
	assert.Error(t, err)
}
