package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

const bitsPerSample = 16 // int16 samples

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WavWriter appends 16-bit PCM frames to a WAV file. Frames may arrive
// from a platform callback goroutine; Close finalizes the header and
// must only be called once no more frames can arrive.
type WavWriter struct {
	mu       sync.Mutex
	file     *os.File
	channels int
	rate     int
	dataSize uint32
	writeErr error
	closed   bool
}

// NewWavWriter creates the output file and writes a provisional header.
// The header sizes are fixed up on Close.
func NewWavWriter(path string, channels, sampleRate int) (*WavWriter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &WavWriter{
		file:     file,
		channels: channels,
		rate:     sampleRate,
	}

	if err := w.writeHeader(0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	return w, nil
}

func (w *WavWriter) writeHeader(dataSize uint32) error {
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     dataSize + 36,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(w.channels),
		SampleRate:    uint32(w.rate),
		ByteRate:      uint32(w.rate) * uint32(w.channels) * bitsPerSample / 8,
		BlockAlign:    uint16(w.channels) * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	return binary.Write(w.file, binary.LittleEndian, header)
}

// WriteSamples appends interleaved samples in arrival order. After the
// first write failure the writer goes sticky-failed and drops frames;
// the error surfaces from Close.
func (w *WavWriter) WriteSamples(samples []int16) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.writeErr != nil {
		return
	}

	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}

	n, err := w.file.Write(buf)
	w.dataSize += uint32(n)
	if err != nil {
		w.writeErr = err
	}
}

// DataSize reports the number of PCM payload bytes written so far.
func (w *WavWriter) DataSize() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataSize
}

// Close finalizes the header sizes and releases the file handle. The
// handle is released even when finalization fails.
func (w *WavWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	finalizeErr := w.finalize()
	closeErr := w.file.Close()

	if w.writeErr != nil {
		return fmt.Errorf("failed to write audio data: %w", w.writeErr)
	}
	if finalizeErr != nil {
		return finalizeErr
	}
	return closeErr
}

func (w *WavWriter) finalize() error {
	// Update ChunkSize (file size - 8)
	if _, err := w.file.Seek(4, 0); err != nil {
		return fmt.Errorf("failed to seek to ChunkSize: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint32(w.dataSize+36)); err != nil {
		return fmt.Errorf("failed to write ChunkSize: %w", err)
	}

	// Update Subchunk2Size (data size)
	if _, err := w.file.Seek(40, 0); err != nil {
		return fmt.Errorf("failed to seek to Subchunk2Size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, w.dataSize); err != nil {
		return fmt.Errorf("failed to write Subchunk2Size: %w", err)
	}

	return nil
}
