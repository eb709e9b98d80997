package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// loopbackMarker is how WASAPI loopback endpoints are labelled by the
// PortAudio device table on Windows builds with loopback support.
const loopbackMarker = "[Loopback]"

// PortAudioHost exposes the PortAudio device table as a Host. The
// caller owns the PortAudio lifetime: NewPortAudioHost initializes the
// library and Close terminates it.
type PortAudioHost struct {
	devices []*portaudio.DeviceInfo
}

func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}
	return &PortAudioHost{}, nil
}

func (h *PortAudioHost) Close() error {
	return portaudio.Terminate()
}

func (h *PortAudioHost) refresh() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("failed to get devices: %w", err)
	}
	h.devices = devices
	return nil
}

func (h *PortAudioHost) endpoint(id int, info *portaudio.DeviceInfo) Endpoint {
	return Endpoint{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		IsLoopback:        info.MaxInputChannels > 0 && strings.Contains(info.Name, loopbackMarker),
	}
}

func (h *PortAudioHost) Endpoints() ([]Endpoint, error) {
	if err := h.refresh(); err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(h.devices))
	for i, info := range h.devices {
		endpoints = append(endpoints, h.endpoint(i, info))
	}
	return endpoints, nil
}

func (h *PortAudioHost) DefaultOutput() (Endpoint, error) {
	if err := h.refresh(); err != nil {
		return Endpoint{}, err
	}

	def, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to get default output device: %w", err)
	}

	for i, info := range h.devices {
		if info.Name == def.Name {
			return h.endpoint(i, info), nil
		}
	}
	return Endpoint{}, fmt.Errorf("default output device %q not in device table", def.Name)
}

func (h *PortAudioHost) OpenStream(ep Endpoint, chunkSize int, onFrames func([]int16)) (Stream, error) {
	if ep.ID < 0 || ep.ID >= len(h.devices) {
		return nil, fmt.Errorf("unknown endpoint ID %d", ep.ID)
	}
	info := h.devices[ep.ID]

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: ep.MaxInputChannels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      ep.DefaultSampleRate,
		FramesPerBuffer: chunkSize,
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		onFrames(in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}
