package tutor

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abhisek/tutorly/internal/debounce"
	"github.com/abhisek/tutorly/internal/session"
)

// Config holds controller settings.
type Config struct {
	// DebounceWindow is the quiet period before buffered input becomes a turn.
	DebounceWindow time.Duration

	// HistoryWindow is the number of conversation entries, including the
	// current input, that strategy selection and the prompt look back on.
	HistoryWindow int

	// Temperature is passed to the generation provider.
	Temperature float64

	// Locale is used for transcription. Default: "en-US".
	Locale string

	// TurnQueueSize bounds the number of turns waiting to run.
	TurnQueueSize int

	// PersistQueueSize bounds pending storage writes.
	PersistQueueSize int

	// GenerationTimeout bounds one generation including every retry. Each
	// attempt is bounded separately by the provider's own timeout. Zero
	// disables it.
	GenerationTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:    debounce.DefaultWindow,
		HistoryWindow:     session.HistoryWindow,
		Temperature:       0.7,
		Locale:            "en-US",
		TurnQueueSize:     16,
		PersistQueueSize:  256,
		GenerationTimeout: 75 * time.Second,
	}
}

// ConfigFromEnv builds a Config from TUTORLY_* environment variables,
// falling back to defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TUTORLY_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DebounceWindow = d
		}
	}
	if v := os.Getenv("TUTORLY_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("TUTORLY_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("TUTORLY_GENERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GenerationTimeout = d
		}
	}
	return cfg
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative")
	}
	if c.HistoryWindow < 1 || c.HistoryWindow > session.MaxHistory {
		return fmt.Errorf("history window must be between 1 and %d, got %d", session.MaxHistory, c.HistoryWindow)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %v", c.Temperature)
	}
	if c.TurnQueueSize < 1 {
		return fmt.Errorf("turn queue size must be at least 1")
	}
	if c.PersistQueueSize < 1 {
		return fmt.Errorf("persist queue size must be at least 1")
	}
	return nil
}
