package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPlatformUnavailable indicates the loopback-capable audio backend
	// is not present on this host.
	ErrPlatformUnavailable = errors.New("audio platform is not available on the system")

	// ErrDeviceNotFound indicates no loopback-capable endpoint could be
	// resolved for the default output device.
	ErrDeviceNotFound = errors.New("default loopback output device not found")

	ErrFileCreate = errors.New("failed to create output file")
	ErrDeviceOpen = errors.New("failed to open capture stream")
	ErrCapture    = errors.New("audio capture failed")
)

// Endpoint describes one device exposed by the platform audio subsystem.
// Endpoints are supplied by the Host and are read-only.
type Endpoint struct {
	ID                int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsLoopback        bool
}

// Stream is an open frame-delivery stream against a single endpoint.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Host is the platform audio subsystem: it enumerates endpoints, reports
// the default output endpoint, and opens capture streams. Frames are
// delivered as interleaved 16-bit signed PCM through the callback, on a
// schedule the platform decides.
type Host interface {
	Endpoints() ([]Endpoint, error)
	DefaultOutput() (Endpoint, error)
	OpenStream(ep Endpoint, chunkSize int, onFrames func([]int16)) (Stream, error)
}

// ResolveLoopback picks the endpoint that captures the system's current
// audio output. If the default output endpoint is already a loopback
// source it is returned as-is; otherwise the first loopback endpoint
// whose name contains the default output's name is used. Name matching
// is a best-effort heuristic and may mis-select when multiple devices
// share a prefix.
func ResolveLoopback(h Host) (Endpoint, error) {
	def, err := h.DefaultOutput()
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to get default output endpoint: %w", err)
	}

	if def.IsLoopback {
		return def, nil
	}

	endpoints, err := h.Endpoints()
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to enumerate endpoints: %w", err)
	}

	for _, ep := range endpoints {
		if ep.IsLoopback && strings.Contains(ep.Name, def.Name) {
			return ep, nil
		}
	}

	return Endpoint{}, fmt.Errorf("%w: no loopback endpoint matches %q", ErrDeviceNotFound, def.Name)
}
