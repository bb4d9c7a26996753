package server

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds HTTP server settings.
type Config struct {
	// Addr is the listen address. Default: ":8080".
	Addr string

	// AllowedOrigins are host patterns accepted for websocket upgrades.
	AllowedOrigins []string

	// TurnTimeout bounds a synchronous turn request.
	TurnTimeout time.Duration

	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		AllowedOrigins:  []string{"*"},
		TurnTimeout:     90 * time.Second,
		ReadTimeout:     30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ConfigFromEnv reads TUTORLY_ADDR and TUTORLY_ALLOWED_ORIGINS
// (comma-separated) over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TUTORLY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TUTORLY_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	return cfg
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeout must be positive")
	}
	return nil
}
