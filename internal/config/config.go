package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	TTLock   TTLockConfig   `yaml:"ttlock"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig represents server identity configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TTLockConfig represents the TTLock cloud API configuration.
// Sync is disabled when ClientID is empty.
type TTLockConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	PageSize     int           `yaml:"page_size"`
}

// SecurityConfig represents credential encryption configuration.
// CredentialKey is a hex-encoded 32-byte AES key.
type SecurityConfig struct {
	CredentialKey string `yaml:"credential_key"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if clientID := os.Getenv("TTLOCK_CLIENT_ID"); clientID != "" {
		c.TTLock.ClientID = clientID
	}

	if clientSecret := os.Getenv("TTLOCK_CLIENT_SECRET"); clientSecret != "" {
		c.TTLock.ClientSecret = clientSecret
	}

	if username := os.Getenv("TTLOCK_USERNAME"); username != "" {
		c.TTLock.Username = username
	}

	if password := os.Getenv("TTLOCK_PASSWORD"); password != "" {
		c.TTLock.Password = password
	}

	if key := os.Getenv("CREDENTIAL_KEY"); key != "" {
		c.Security.CredentialKey = key
	}
}

// setDefaults fills in values the file may omit
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "lockmaster-server"
	}

	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}

	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 5 * time.Second
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.TTLock.BaseURL == "" {
		c.TTLock.BaseURL = "https://euapi.ttlock.com"
	}
	if c.TTLock.SyncInterval == 0 {
		c.TTLock.SyncInterval = 15 * time.Minute
	}
	if c.TTLock.PageSize == 0 {
		c.TTLock.PageSize = 100
	}
}

// validate checks values the rest of the system cannot start without
func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}

	if c.Security.CredentialKey != "" {
		key, err := hex.DecodeString(c.Security.CredentialKey)
		if err != nil {
			return fmt.Errorf("security.credential_key is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("security.credential_key must be 32 bytes, got %d", len(key))
		}
	}

	return nil
}
