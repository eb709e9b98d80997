package scribe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name string
	text string
	err  error

	gotPath     string
	gotLanguage string
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Transcribe(ctx context.Context, path, language string) (string, error) {
	e.gotPath = path
	e.gotLanguage = language
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func tempWavFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF fake"), 0644))
	return path
}

func TestScribeTranscribeRecordsMessage(t *testing.T) {
	engine := &stubEngine{name: "stub", text: "hello world"}
	s, err := NewWithEngine(Config{Language: "en-US"}, engine)
	require.NoError(t, err)

	var notified []Message
	s.OnMessage(func(msg Message) { notified = append(notified, msg) })

	path := tempWavFile(t)
	msg, err := s.Transcribe(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, "hello world", msg.Text)
	assert.Equal(t, "clip.wav", msg.AudioFile)
	assert.Equal(t, "stub", msg.Engine)
	assert.NotEqual(t, msg.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)

	// Default language applied when the request omits one.
	assert.Equal(t, "en-US", engine.gotLanguage)
	assert.Equal(t, path, engine.gotPath)

	require.Len(t, notified, 1)
	assert.Equal(t, msg, notified[0])

	history := s.Messages()
	require.Len(t, history, 1)
	assert.Equal(t, msg, history[0])
}

func TestScribeTranscribeMissingFile(t *testing.T) {
	s, err := NewWithEngine(Config{}, &stubEngine{name: "stub"})
	require.NoError(t, err)

	_, err = s.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), "en-US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio file not found")
}

func TestScribeTranscribePropagatesEngineError(t *testing.T) {
	engine := &stubEngine{name: "stub", err: ErrNoSpeech}
	s, err := NewWithEngine(Config{}, engine)
	require.NoError(t, err)

	_, err = s.Transcribe(context.Background(), tempWavFile(t), "en-US")
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.Empty(t, s.Messages())
}

func TestScribeWatcherTranscribesDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	engine := &stubEngine{name: "stub", text: "from the watcher"}
	s, err := NewWithEngine(Config{WatchDir: dir, Workers: 1}, engine)
	require.NoError(t, err)

	done := make(chan Message, 1)
	s.OnMessage(func(msg Message) { done <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		cancel()
		s.Stop(stopCtx)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop.wav"), []byte("RIFF fake"), 0644))

	select {
	case msg := <-done:
		assert.Equal(t, "from the watcher", msg.Text)
		assert.Equal(t, "drop.wav", msg.AudioFile)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher transcription")
	}
}

func TestBuildEngineSelection(t *testing.T) {
	engine, err := buildEngine(Config{Engine: "google"})
	require.NoError(t, err)
	assert.Equal(t, "google", engine.Name())

	engine, err = buildEngine(Config{Engine: "deepgram", DeepgramAPIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "deepgram", engine.Name())

	_, err = buildEngine(Config{Engine: "deepgram"})
	assert.Error(t, err)

	engine, err = buildEngine(Config{Engine: "whisper", WhisperPath: "/usr/bin/whisper", WhisperModel: "base.en"})
	require.NoError(t, err)
	assert.Equal(t, "whisper", engine.Name())

	_, err = buildEngine(Config{Engine: "whisper"})
	assert.Error(t, err)

	_, err = buildEngine(Config{Engine: "parakeet"})
	assert.Error(t, err)
}
