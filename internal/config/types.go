package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ghostmonk/storyfeed/internal/logger"
)

// Config is the root configuration for the storyfeed CLI and mock server.
type Config struct {
	Logging logger.Config `yaml:"logging"`
	API     APIConfig     `yaml:"api"`
	Server  ServerConfig  `yaml:"server"`
}

// APIConfig configures the stories API client.
type APIConfig struct {
	// URL is the base URL of the stories endpoint.
	URL string `yaml:"url" env:"STORYFEED_API_URL"`
	// Timeout bounds each request round-trip.
	Timeout time.Duration `yaml:"timeout" env:"STORYFEED_API_TIMEOUT"`
	// Token is a static bearer token. Takes precedence over TokenFile
	// and AuthSecret when set.
	Token string `yaml:"token" env:"STORYFEED_TOKEN"`
	// TokenFile points at a file whose contents are the bearer token.
	// The file is watched; credential changes reset the feed.
	TokenFile string `yaml:"token_file" env:"STORYFEED_TOKEN_FILE"`
	// AuthSecret, when set and no Token/TokenFile is given, lets the
	// client mint its own short-lived service tokens.
	AuthSecret string `yaml:"auth_secret" env:"STORYFEED_AUTH_SECRET"`
	// ServiceName is the subject claim on minted service tokens.
	ServiceName string `yaml:"service_name" env:"STORYFEED_SERVICE_NAME"`
}

// SetDefaults applies default values for APIConfig.
func (c *APIConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8090"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "storyfeed-cli"
	}
}

// ServerConfig configures the bundled mock stories endpoint.
type ServerConfig struct {
	Host         string        `yaml:"host" env:"STORYFEED_HOST"`
	Port         int           `yaml:"port" env:"STORYFEED_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// AuthSecret validates bearer tokens on mutating routes.
	AuthSecret string `yaml:"auth_secret" env:"STORYFEED_AUTH_SECRET"`
	// CacheTTL bounds how long list responses are served from cache.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"STORYFEED_CACHE_TTL"`
	// Seed populates the store with fixture stories on startup.
	Seed bool `yaml:"seed" env:"STORYFEED_SEED"`
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// SetDefaults applies default values for ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 30 * time.Second
	}
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.API.SetDefaults()
	c.Server.SetDefaults()
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.API.URL == "" {
		return &ValidationError{Field: "api.url", Message: "is required"}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
	return nil
}
