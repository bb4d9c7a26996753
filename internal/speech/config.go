package speech

import (
	"os"
	"strconv"
)

// Config holds audio capture and transcription settings.
type Config struct {
	// Model is the transcription model. Default: "whisper-1".
	Model string
	// APIKey is the OpenAI key used for transcription.
	APIKey string
	// BaseURL overrides the API endpoint for compatible services.
	BaseURL string
	// SampleRate of captured PCM in Hz. Default: 16000.
	SampleRate int
	// Channels of captured PCM. Default: 1.
	Channels int
}

// DefaultConfig returns a Config for 16 kHz mono 16-bit PCM.
func DefaultConfig() Config {
	return Config{
		Model:      "whisper-1",
		SampleRate: 16000,
		Channels:   1,
	}
}

// ConfigFromEnv reads TUTORLY_SPEECH_* variables over the defaults.
// The API key falls back to OPENAI_API_KEY.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TUTORLY_SPEECH_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.APIKey = os.Getenv("TUTORLY_SPEECH_API_KEY")
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.BaseURL = os.Getenv("TUTORLY_SPEECH_BASE_URL")
	if v := os.Getenv("TUTORLY_SPEECH_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SampleRate = n
		}
	}
	return cfg
}
