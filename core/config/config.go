package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Typing     TypingConfig
	Valkey     ValkeyConfig
	WorkerPool WorkerPoolConfig
	Compose    ComposeConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Storages string
}

type TypingConfig struct {
	IdleTimeoutMs   int
	ExpiryTimeoutMs int
	// RefreshIntervalMs re-sends start during long compositions; 0 disables it.
	RefreshIntervalMs int
	TopicCaseFold     bool
	Store             string // memory | valkey
}

const (
	DefaultIdleTimeoutMs   = 5000
	DefaultExpiryTimeoutMs = 15000
)

// ApplyDefaults replaces timeouts that would disable debouncing or expire
// typists immediately.
func (t *TypingConfig) ApplyDefaults() {
	if t.IdleTimeoutMs <= 0 {
		logrus.Warnf("[CONFIG] Idle timeout must be positive, got %dms; using %dms", t.IdleTimeoutMs, DefaultIdleTimeoutMs)
		t.IdleTimeoutMs = DefaultIdleTimeoutMs
	}
	if t.ExpiryTimeoutMs <= 0 {
		logrus.Warnf("[CONFIG] Expiry timeout must be positive, got %dms; using %dms", t.ExpiryTimeoutMs, DefaultExpiryTimeoutMs)
		t.ExpiryTimeoutMs = DefaultExpiryTimeoutMs
	}
	if t.RefreshIntervalMs < 0 {
		t.RefreshIntervalMs = 0
	}
}

func (t TypingConfig) IdleTimeout() time.Duration {
	return time.Duration(t.IdleTimeoutMs) * time.Millisecond
}

func (t TypingConfig) ExpiryTimeout() time.Duration {
	return time.Duration(t.ExpiryTimeoutMs) * time.Millisecond
}

func (t TypingConfig) RefreshInterval() time.Duration {
	return time.Duration(t.RefreshIntervalMs) * time.Millisecond
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// ComposeConfig is used by the compose client command.
type ComposeConfig struct {
	ServerURL string
	UserID    int64
	BasicAuth string
}

const (
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	} else if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	valkeyCfg := ValkeyConfig{
		Enabled:   getEnvBool("VALKEY_ENABLED", false),
		Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		Password:  getEnv("VALKEY_PASSWORD", ""),
		DB:        getEnvInt("VALKEY_DB", 0),
		KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "aztyping:"),
	}

	typingCfg := TypingConfig{
		IdleTimeoutMs:     getEnvInt("TYPING_IDLE_TIMEOUT_MS", DefaultIdleTimeoutMs),
		ExpiryTimeoutMs:   getEnvInt("TYPING_EXPIRY_TIMEOUT_MS", DefaultExpiryTimeoutMs),
		RefreshIntervalMs: getEnvInt("TYPING_REFRESH_INTERVAL_MS", 0),
		TopicCaseFold:     getEnvBool("TYPING_TOPIC_CASE_FOLD", false),
		Store:             strings.ToLower(getEnv("TYPING_STORE", StoreMemory)),
	}
	typingCfg.ApplyDefaults()
	if typingCfg.Store == StoreValkey {
		valkeyCfg.Enabled = true
	}

	cfg := &Config{
		App:    appCfg,
		Paths:  PathsConfig{Storages: getEnv("APP_BASE_DIR", "storages")},
		Typing: typingCfg,
		Valkey: valkeyCfg,
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("TRANSPORT_WORKER_POOL_SIZE", 4),
			QueueSize: getEnvInt("TRANSPORT_WORKER_QUEUE_SIZE", 256),
		},
		Compose: ComposeConfig{
			ServerURL: getEnv("COMPOSE_SERVER_URL", "http://localhost:3000"),
			UserID:    getEnvInt64("COMPOSE_USER_ID", 0),
			BasicAuth: getEnv("COMPOSE_BASIC_AUTH", ""),
		},
	}

	Global = cfg
	return cfg, nil
}
