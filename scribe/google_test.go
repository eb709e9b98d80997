package scribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopscribe/loopscribe/audio"
)

func writeTestWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	writer, err := audio.NewWavWriter(path, 2, 16000)
	require.NoError(t, err)
	samples := make([]int16, 640)
	for i := range samples {
		samples[i] = int16((i % 100) * 50)
	}
	writer.WriteSamples(samples)
	require.NoError(t, writer.Close())
	return path
}

func googleStub(t *testing.T, handler http.HandlerFunc) *GoogleEngine {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	engine := NewGoogleEngine("")
	engine.endpoint = ts.URL
	return engine
}

func TestGoogleEngineTranscribes(t *testing.T) {
	var gotContentType, gotQuery string
	engine := googleStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		w.Write([]byte("{\"result\":[]}\n" +
			`{"result":[{"alternative":[{"transcript":"hello world","confidence":0.98762912}],"final":true}],"result_index":0}` + "\n"))
	})

	text, err := engine.Transcribe(context.Background(), writeTestWav(t), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "audio/l16; rate=16000", gotContentType)
	assert.Contains(t, gotQuery, "lang=en-US")
}

func TestGoogleEngineNoSpeech(t *testing.T) {
	engine := googleStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"result\":[]}\n"))
	})

	_, err := engine.Transcribe(context.Background(), writeTestWav(t), "en-US")
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestGoogleEngineRequestFailed(t *testing.T) {
	engine := googleStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	_, err := engine.Transcribe(context.Background(), writeTestWav(t), "en-US")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestGoogleEngineMissingFile(t *testing.T) {
	engine := NewGoogleEngine("")

	_, err := engine.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), "en-US")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestReadMonoPCMDownmixes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writer, err := audio.NewWavWriter(path, 2, 44100)
	require.NoError(t, err)
	// Interleaved stereo: L=100, R=300 averages to 200.
	writer.WriteSamples([]int16{100, 300, 100, 300})
	require.NoError(t, writer.Close())

	pcm, rate, err := readMonoPCM(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	require.Len(t, pcm, 4)
	assert.Equal(t, []byte{200, 0, 200, 0}, pcm)
}
