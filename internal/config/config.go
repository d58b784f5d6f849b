package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"AlcoMonitorAPI/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	MQTT     MQTTConfig
	Monitor  MonitorConfig
	Recorder RecorderConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Emulator EmulatorConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
	ReportFontPath  string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// Retention is how long alarms and samples are kept. Zero keeps everything.
	Retention time.Duration
}

type MQTTConfig struct {
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	SecretsFile    string
	QoS            byte
	RetainMessages bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

// TopicPrefix is the per-account namespace every device topic lives under.
func (m MQTTConfig) TopicPrefix() string {
	if m.Username == "" {
		return ""
	}
	return m.Username + "/"
}

type MonitorConfig struct {
	EvaluationInterval time.Duration
	DataTimeout        time.Duration
	StoreCapacity      int
	SettingsFile       string
	AutoResetThreshold bool
	AlarmQueueSize     int
}

type RecorderConfig struct {
	Enabled  bool
	Dir      string
	MaxBytes int64
	Backups  int
}

type SecurityConfig struct {
	AuthEnabled        bool
	JWTSecret          string
	JWTExpirationHours int
	AdminPasswordHash  string
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

type EmulatorConfig struct {
	ClientID        string
	PublishInterval time.Duration
	EmbeddedBroker  bool
	BrokerAddress   string
	Seed            int64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		MQTT:     loadMQTTConfig(),
		Monitor:  loadMonitorConfig(),
		Recorder: loadRecorderConfig(),
		Security: loadSecurityConfig(),
		Logging:  loadLoggingConfig(),
		Emulator: loadEmulatorConfig(),
	}

	secrets, err := LoadSecrets(cfg.MQTT.SecretsFile)
	if err != nil {
		return nil, err
	}
	if secrets != nil {
		secrets.Apply(&cfg.MQTT)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "30s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
		ReportFontPath:  getEnv("REPORT_FONT_PATH", ""),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         getEnvAsBool("DB_ENABLED", false),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "alco"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "alco_monitor"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
		Retention:       getEnvAsDuration("DB_RETENTION", "720h"),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "alco-monitor"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		SecretsFile:    getEnv("MQTT_SECRETS_FILE", "secrets.json"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages: getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadMonitorConfig() MonitorConfig {
	return MonitorConfig{
		EvaluationInterval: getEnvAsDuration("MONITOR_EVALUATION_INTERVAL", "2s"),
		DataTimeout:        getEnvAsDuration("MONITOR_DATA_TIMEOUT", "60s"),
		StoreCapacity:      getEnvAsInt("MONITOR_STORE_CAPACITY", 1000000),
		SettingsFile:       getEnv("MONITOR_SETTINGS_FILE", "settings.yaml"),
		AutoResetThreshold: getEnvAsBool("MONITOR_AUTO_RESET_THRESHOLD", true),
		AlarmQueueSize:     getEnvAsInt("MONITOR_ALARM_QUEUE_SIZE", 64),
	}
}

func loadRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Enabled:  getEnvAsBool("RECORDER_ENABLED", true),
		Dir:      getEnv("RECORDER_DIR", "log"),
		MaxBytes: int64(getEnvAsInt("RECORDER_MAX_BYTES", 100*1024*1024)),
		Backups:  getEnvAsInt("RECORDER_BACKUPS", 5),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS")

	return SecurityConfig{
		AuthEnabled:        getEnvAsBool("AUTH_ENABLED", false),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", true),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func loadEmulatorConfig() EmulatorConfig {
	return EmulatorConfig{
		ClientID:        getEnv("EMULATOR_CLIENT_ID", "alco-esp-emulator"),
		PublishInterval: getEnvAsDuration("EMULATOR_PUBLISH_INTERVAL", "10s"),
		EmbeddedBroker:  getEnvAsBool("EMULATOR_EMBEDDED_BROKER", false),
		BrokerAddress:   getEnv("EMULATOR_BROKER_ADDRESS", ":1883"),
		Seed:            int64(getEnvAsInt("EMULATOR_SEED", 0)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

func (c *Config) GetMQTTBroker() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTT.Broker, c.MQTT.Port)
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if c.MQTT.Username == "" {
		errors = append(errors, "MQTT_USERNAME is required (device topics live under <username>/)")
	}

	if c.MQTT.QoS > 2 {
		errors = append(errors, "MQTT_QOS must be 0, 1 or 2")
	}

	if c.Database.Enabled {
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty when DB_ENABLED=true")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
	}

	if c.Monitor.EvaluationInterval <= 0 {
		errors = append(errors, "MONITOR_EVALUATION_INTERVAL must be positive")
	}

	if c.Monitor.DataTimeout <= 0 {
		errors = append(errors, "MONITOR_DATA_TIMEOUT must be positive")
	}

	if c.Monitor.StoreCapacity < 2 {
		errors = append(errors, "MONITOR_STORE_CAPACITY must be at least 2")
	}

	if c.Recorder.Enabled && c.Recorder.MaxBytes <= 0 {
		errors = append(errors, "RECORDER_MAX_BYTES must be positive")
	}

	if c.Security.AuthEnabled {
		if len(c.Security.JWTSecret) < 16 {
			errors = append(errors, "JWT_SECRET must be at least 16 characters when AUTH_ENABLED=true")
		}
		if c.Security.AdminPasswordHash == "" {
			errors = append(errors, "ADMIN_PASSWORD_HASH is required when AUTH_ENABLED=true")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║              Alco ESP Monitor - Configuration            ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("MQTT Broker:     %s:%d (prefix %q)\n", c.MQTT.Broker, c.MQTT.Port, c.MQTT.TopicPrefix())
	if c.Database.Enabled {
		fmt.Printf("Database:        %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	} else {
		fmt.Println("Database:        disabled")
	}
	fmt.Printf("Evaluation:      every %v, data timeout %v\n", c.Monitor.EvaluationInterval, c.Monitor.DataTimeout)
	if c.Recorder.Enabled {
		fmt.Printf("CSV logs:        %s\n", c.Recorder.Dir)
	}
	fmt.Printf("Auth:            %v\n", c.Security.AuthEnabled)
	fmt.Println("──────────────────────────────────────────────────────────")
}
