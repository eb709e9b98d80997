package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// DefaultChunkSize is the number of frames requested per delivery
// callback. A throughput/latency tuning knob, not a correctness one.
const DefaultChunkSize = 512

// CaptureRequest describes one capture invocation. Name is the output
// file name without extension; the ".wav" suffix is appended.
type CaptureRequest struct {
	Name      string
	Duration  time.Duration
	ChunkSize int
}

// CaptureResult is produced once per request on success.
type CaptureResult struct {
	Path     string // absolute path of the finalized WAV file
	Endpoint Endpoint
}

// Capture records system output audio from the host's loopback endpoint
// into <Name>.wav for exactly req.Duration of wall-clock time. The
// number of frames captured is whatever the endpoint delivers in that
// interval. Frames are appended in arrival order; the stream is closed
// before the file is finalized, and both handles are released on every
// exit path. Cancelling ctx aborts the capture with an error.
func Capture(ctx context.Context, h Host, req CaptureRequest) (CaptureResult, error) {
	if req.Name == "" {
		return CaptureResult{}, fmt.Errorf("%w: output name must not be empty", ErrCapture)
	}
	if req.Duration <= 0 {
		return CaptureResult{}, fmt.Errorf("%w: duration must be positive", ErrCapture)
	}
	if req.ChunkSize <= 0 {
		req.ChunkSize = DefaultChunkSize
	}

	ep, err := ResolveLoopback(h)
	if err != nil {
		return CaptureResult{}, err
	}

	slog.Info("Recording from endpoint",
		"endpointID", ep.ID,
		"endpointName", ep.Name,
		"channels", ep.MaxInputChannels,
		"sampleRate", ep.DefaultSampleRate)

	filename := req.Name + ".wav"
	writer, err := NewWavWriter(filename, ep.MaxInputChannels, int(ep.DefaultSampleRate))
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrFileCreate, err)
	}
	// Release the file handle on every exit path. The file may be left
	// incomplete on disk after a failure, but the handle never leaks.
	defer writer.Close()

	stream, err := h.OpenStream(ep, req.ChunkSize, writer.WriteSamples)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}
	streamOpen := true
	defer func() {
		if streamOpen {
			stream.Close()
		}
	}()

	if err := stream.Start(); err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}

	slog.Debug("Capture started", "file", filename, "duration", req.Duration)

	timer := time.NewTimer(req.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		stream.Stop()
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrCapture, ctx.Err())
	}

	if err := stream.Stop(); err != nil {
		return CaptureResult{}, fmt.Errorf("%w: failed to stop stream: %v", ErrCapture, err)
	}
	// The stream must be fully closed before the container is finalized
	// so no frames can arrive after the header is written.
	streamOpen = false
	if err := stream.Close(); err != nil {
		return CaptureResult{}, fmt.Errorf("%w: failed to close stream: %v", ErrCapture, err)
	}

	if err := writer.Close(); err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	path, err := filepath.Abs(filename)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	slog.Info("Capture finished",
		"path", path,
		"bytes", writer.DataSize(),
		"endpointName", ep.Name)

	return CaptureResult{Path: path, Endpoint: ep}, nil
}
