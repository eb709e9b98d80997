package scribe

import (
	"context"
	"fmt"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// DeepgramEngine transcribes finalized files through Deepgram's
// prerecorded REST API.
type DeepgramEngine struct {
	apiKey string
	model  string
}

func NewDeepgramEngine(apiKey, model string) *DeepgramEngine {
	if model == "" {
		model = "nova-2"
	}
	return &DeepgramEngine{apiKey: apiKey, model: model}
}

func (e *DeepgramEngine) Name() string { return "deepgram" }

func (e *DeepgramEngine) Transcribe(ctx context.Context, path, language string) (string, error) {
	client := listen.NewREST(e.apiKey, &interfaces.ClientOptions{})
	dg := prerecorded.New(client)

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       e.model,
		Language:    language,
		SmartFormat: true,
	}

	resp, err := dg.FromFile(ctx, path, options)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", ErrNoSpeech
	}

	text := resp.Results.Channels[0].Alternatives[0].Transcript
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
