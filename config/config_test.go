package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "google", cfg.Engine)
	assert.Equal(t, "en-US", cfg.Language)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOOPSCRIBE_ADDR", ":9000")
	t.Setenv("LOOPSCRIBE_STT_LANGUAGE", "de-DE")
	t.Setenv("LOOPSCRIBE_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "de-DE", cfg.Language)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadDeepgramRequiresKey(t *testing.T) {
	t.Setenv("LOOPSCRIBE_STT_ENGINE", "deepgram")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPGRAM_API_KEY")

	t.Setenv("DEEPGRAM_API_KEY", "token")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "deepgram", cfg.Engine)
}

func TestLoadWhisperRequiresPaths(t *testing.T) {
	t.Setenv("LOOPSCRIBE_STT_ENGINE", "whisper")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("LOOPSCRIBE_WHISPER_PATH", "/usr/local/bin/whisper")
	t.Setenv("LOOPSCRIBE_WHISPER_MODEL", "models/ggml-base.en.bin")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "whisper", cfg.Engine)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("LOOPSCRIBE_STT_ENGINE", "parakeet")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transcription engine")
}
