package scribe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoSpeech indicates the speech service received the audio but
	// found nothing it could understand.
	ErrNoSpeech = errors.New("speech service could not understand the audio")

	// ErrRequestFailed indicates the speech service request itself
	// failed (transport, authentication, quota).
	ErrRequestFailed = errors.New("speech service request failed")
)

// Engine turns a finalized audio file into text. Implementations must
// never be handed a file that is still being written.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string, language string) (string, error)
}

// Message is a single completed transcription.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	AudioFile string    `json:"audioFile"`
	Engine    string    `json:"engine"`
}

// Job is a queued request for the background worker pool.
type Job struct {
	ID        uuid.UUID
	FilePath  string
	Language  string
	Timestamp time.Time
}
