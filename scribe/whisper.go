package scribe

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// WhisperEngine shells out to a local whisper executable and extracts
// plain text from its subtitle-style output.
type WhisperEngine struct {
	path  string
	model string
}

func NewWhisperEngine(path, model string) *WhisperEngine {
	return &WhisperEngine{path: path, model: model}
}

func (e *WhisperEngine) Name() string { return "whisper" }

func (e *WhisperEngine) Transcribe(ctx context.Context, path, language string) (string, error) {
	cmd := exec.CommandContext(ctx, e.path,
		"--model", e.model,
		"--language", language,
		path)

	slog.Debug("Executing whisper command", "command", cmd.String())

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			slog.Debug("Whisper command failed",
				"stderr", string(exitErr.Stderr),
				"exitCode", exitErr.ExitCode())
		}
		return "", fmt.Errorf("%w: whisper execution failed: %v", ErrRequestFailed, err)
	}

	text := extractText(string(output))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// extractText joins the non-empty output lines, dropping blank-audio
// markers.
func extractText(output string) string {
	var builder strings.Builder

	for _, line := range strings.Split(output, "\n") {
		text := strings.TrimSpace(line)
		if text == "" || strings.Contains(text, "[BLANK_AUDIO]") {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(text)
	}

	return builder.String()
}
