package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the loopscribe service
type Config struct {
	// HTTP server address
	Addr string `envconfig:"LOOPSCRIBE_ADDR" default:":5000"`

	// Directory capture output files are written into
	OutputDir string `envconfig:"LOOPSCRIBE_OUTPUT_DIR" default:"."`

	// Directory watched for dropped-in recordings; empty disables the
	// watcher
	WatchDir string `envconfig:"LOOPSCRIBE_WATCH_DIR" default:""`

	// Transcription engine: google, deepgram or whisper
	Engine string `envconfig:"LOOPSCRIBE_STT_ENGINE" default:"google"`

	// Default language tag for transcription
	Language string `envconfig:"LOOPSCRIBE_STT_LANGUAGE" default:"en-US"`

	// Google Web Speech API key; a public default is used when empty
	GoogleAPIKey string `envconfig:"LOOPSCRIBE_GOOGLE_API_KEY" default:""`

	// Deepgram STT configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// Local whisper configuration
	WhisperPath  string `envconfig:"LOOPSCRIBE_WHISPER_PATH" default:""`
	WhisperModel string `envconfig:"LOOPSCRIBE_WHISPER_MODEL" default:""`

	// Background transcription workers
	Workers int `envconfig:"LOOPSCRIBE_WORKERS" default:"2"`

	// Log level: debug, info, warn, error
	LogLevel string `envconfig:"LOOPSCRIBE_LOG_LEVEL" default:"info"`

	// Expose Prometheus metrics at /metrics
	MetricsEnabled bool `envconfig:"LOOPSCRIBE_METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment, after loading a .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine {
	case "google":
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required for the deepgram engine")
		}
	case "whisper":
		if c.WhisperPath == "" || c.WhisperModel == "" {
			return fmt.Errorf("LOOPSCRIBE_WHISPER_PATH and LOOPSCRIBE_WHISPER_MODEL are required for the whisper engine")
		}
	default:
		return fmt.Errorf("unknown transcription engine %q", c.Engine)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	return nil
}
