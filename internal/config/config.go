package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	APIURL         string
	PushURL        string
	ReconnectDelay time.Duration
	RequestTimeout time.Duration

	CredentialStore string
	CredentialFile  string
	CredentialName  string
	DatabaseURL     string

	GatewayPort int

	Username string
	Password string

	LogLevel slog.Level
}

// Load reads an optional .env file, then configuration from environment
// variables, and validates required fields.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("OCEAN_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	reconnect, err := getEnvDuration("OCEAN_RECONNECT_DELAY", 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse OCEAN_RECONNECT_DELAY: %w", err)
	}

	timeout, err := getEnvDuration("OCEAN_REQUEST_TIMEOUT", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse OCEAN_REQUEST_TIMEOUT: %w", err)
	}

	port, err := getEnvInt("GATEWAY_PORT", 8090)
	if err != nil {
		return Config{}, fmt.Errorf("parse GATEWAY_PORT: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	cfg := Config{
		APIURL:          strings.TrimRight(getEnv("OCEAN_API_URL", "http://localhost:8000/api"), "/"),
		PushURL:         getEnv("OCEAN_PUSH_URL", "ws://localhost:8000/ws/notifications/"),
		ReconnectDelay:  reconnect,
		RequestTimeout:  timeout,
		CredentialStore: strings.ToLower(getEnv("OCEAN_CREDENTIAL_STORE", StoreFile)),
		CredentialFile:  getEnv("OCEAN_CREDENTIAL_FILE", defaultCredentialFile()),
		CredentialName:  getEnv("OCEAN_CREDENTIAL_PROFILE", "default"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		GatewayPort:     port,
		Username:        getEnv("OCEAN_USERNAME", ""),
		Password:        getEnv("OCEAN_PASSWORD", ""),
		LogLevel:        level,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("OCEAN_API_URL is required")
	}
	if c.PushURL == "" {
		return fmt.Errorf("OCEAN_PUSH_URL is required")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("OCEAN_RECONNECT_DELAY must be > 0")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("OCEAN_REQUEST_TIMEOUT must be >= 0")
	}
	switch c.CredentialStore {
	case StoreFile:
		if c.CredentialFile == "" {
			return fmt.Errorf("OCEAN_CREDENTIAL_FILE is required for the file store")
		}
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("OCEAN_CREDENTIAL_STORE must be one of file, memory, postgres; got %q", c.CredentialStore)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("OCEAN_USERNAME and OCEAN_PASSWORD must be set together")
	}
	return nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".oceanschool", "credentials.json")
	}
	return filepath.Join(home, ".oceanschool", "credentials.json")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
