package scribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// Configuration for the Scribe service
type Config struct {
	// Which transcription engine to use: "google", "deepgram" or "whisper"
	Engine string

	// Default language tag for transcription requests
	Language string

	// Google Web Speech API key (optional, a public default is used)
	GoogleAPIKey string

	// Deepgram credentials and model
	DeepgramAPIKey string
	DeepgramModel  string

	// Path to whisper executable and model
	WhisperPath  string
	WhisperModel string

	// Directory to monitor for dropped-in recordings; empty disables
	// the watcher
	WatchDir string

	// Number of worker threads for background processing
	Workers int
}

// Scribe owns the transcription engine, the in-memory transcription
// history, and the optional watch-directory worker pool.
type Scribe struct {
	config Config
	engine Engine

	// File system watcher, nil when WatchDir is unset
	watcher *fsnotify.Watcher

	// Processing queue
	queue   chan Job
	workers sync.WaitGroup

	mu       sync.RWMutex
	messages []Message

	// Called after each completed transcription, from the transcribing
	// goroutine
	onMessage func(Message)
}

// New creates a Scribe with the engine named in cfg.
func New(cfg Config) (*Scribe, error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithEngine(cfg, engine)
}

// NewWithEngine creates a Scribe around an already-constructed engine.
func NewWithEngine(cfg Config, engine Engine) (*Scribe, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}

	s := &Scribe{
		config: cfg,
		engine: engine,
		queue:  make(chan Job, 100),
	}

	if cfg.WatchDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

func buildEngine(cfg Config) (Engine, error) {
	switch cfg.Engine {
	case "", "google":
		return NewGoogleEngine(cfg.GoogleAPIKey), nil
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("deepgram engine requires an API key")
		}
		return NewDeepgramEngine(cfg.DeepgramAPIKey, cfg.DeepgramModel), nil
	case "whisper":
		if cfg.WhisperPath == "" || cfg.WhisperModel == "" {
			return nil, fmt.Errorf("whisper engine requires executable and model paths")
		}
		return NewWhisperEngine(cfg.WhisperPath, cfg.WhisperModel), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", cfg.Engine)
	}
}

// EngineName reports the name of the active transcription engine.
func (s *Scribe) EngineName() string {
	return s.engine.Name()
}

// OnMessage registers the listener notified after each completed
// transcription. Must be set before Start.
func (s *Scribe) OnMessage(fn func(Message)) {
	s.onMessage = fn
}

// Start begins the background workers and the directory watcher.
func (s *Scribe) Start(ctx context.Context) error {
	for i := 0; i < s.config.Workers; i++ {
		s.workers.Add(1)
		go s.worker(ctx)
	}

	if s.watcher != nil {
		go s.watchFiles(ctx)
	}

	slog.Info("Scribe started",
		"engine", s.engine.Name(),
		"workers", s.config.Workers,
		"watchDir", s.config.WatchDir)
	return nil
}

// Stop gracefully shuts down the Scribe service
func (s *Scribe) Stop(ctx context.Context) error {
	// Stop accepting new jobs
	close(s.queue)

	// Wait for workers to finish
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out")
	}

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close file watcher: %w", err)
		}
	}

	return nil
}

// Transcribe runs the engine on a finalized audio file and records the
// result in the history. Engine failures are propagated verbatim; no
// retries, and the audio file is never deleted here.
func (s *Scribe) Transcribe(ctx context.Context, path, language string) (Message, error) {
	if language == "" {
		language = s.config.Language
	}

	if _, err := os.Stat(path); err != nil {
		return Message{}, fmt.Errorf("audio file not found: %s", path)
	}

	start := time.Now()
	text, err := s.engine.Transcribe(ctx, path, language)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Text:      text,
		AudioFile: filepath.Base(path),
		Engine:    s.engine.Name(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	slog.Info("Successfully transcribed audio",
		"file", msg.AudioFile,
		"engine", msg.Engine,
		"elapsed", time.Since(start),
		"text", text)

	if s.onMessage != nil {
		s.onMessage(msg)
	}

	return msg, nil
}

// Messages returns a copy of the transcription history, oldest first.
func (s *Scribe) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
