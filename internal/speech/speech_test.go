package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeEmptyAudio(t *testing.T) {
	_, err := Transcribe(t.Context(), StaticTranscriber{Text: "hi"}, nil, "en-US")
	assert.ErrorIs(t, err, ErrEmptyAudioBuffer)
}

func TestTranscribeNothingUnderstood(t *testing.T) {
	_, err := Transcribe(t.Context(), StaticTranscriber{Text: "  \n"}, []byte{1, 2}, "en-US")
	assert.ErrorIs(t, err, ErrTranscriptionEmpty)
	assert.False(t, errors.Is(err, ErrEmptyAudioBuffer))
}

func TestTranscribeTrimsAndWrapsErrors(t *testing.T) {
	text, err := Transcribe(t.Context(), StaticTranscriber{Text: " what is a volcano \n"}, []byte{1, 2}, "en")
	require.NoError(t, err)
	assert.Equal(t, "what is a volcano", text)

	boom := errors.New("boom")
	_, err = Transcribe(t.Context(), StaticTranscriber{Err: boom}, []byte{1}, "en")
	assert.ErrorIs(t, err, boom)
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav, err := EncodeWAV(pcm, 16000, 1)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])

	_, err = EncodeWAV(pcm, 0, 1)
	assert.Error(t, err)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "en", language("en-US"))
	assert.Equal(t, "pt", language("pt_BR"))
	assert.Equal(t, "fr", language("fr"))
	assert.Equal(t, "", language(""))
}

func TestRecorderCapturesReader(t *testing.T) {
	data := bytes.Repeat([]byte{7}, chunkSize*2+10)
	r := NewRecorder(ReaderSource{R: bytes.NewReader(data)})

	require.NoError(t, r.Run(t.Context()))
	assert.Equal(t, data, r.Take())
	assert.Empty(t, r.Take())
}

// endlessReader never returns EOF.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 1
	}
	return len(p), nil
}

func TestRecorderStopsOnCancel(t *testing.T) {
	r := NewRecorder(ReaderSource{R: io.LimitReader(endlessReader{}, 1<<20)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.Empty(t, r.Take())
}

func TestRecorderStopsWhileReadBlocks(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewRecorder(ReaderSource{R: pr})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	_, err := pw.Write([]byte("pcm"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not return after cancel")
	}
	assert.Equal(t, []byte("pcm"), r.Take())
}

func TestReaderSourceClosesReaderOnReturn(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("abc")}
	var buf bytes.Buffer
	require.NoError(t, ReaderSource{R: rc}.Capture(t.Context(), &buf))
	assert.Equal(t, "abc", buf.String())
	assert.Equal(t, 1, rc.closes)
}

type closeTracker struct {
	io.Reader
	closes int
}

func (c *closeTracker) Close() error {
	c.closes++
	return nil
}

func TestReaderSourcePropagatesErrors(t *testing.T) {
	boom := errors.New("device unplugged")
	src := ReaderSource{R: io.MultiReader(strings.NewReader("abc"), errReader{boom})}
	var buf bytes.Buffer
	err := src.Capture(t.Context(), &buf)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "abc", buf.String())
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestNewWhisperTranscriberRequiresKey(t *testing.T) {
	_, err := NewWhisperTranscriber(DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	w, err := NewWhisperTranscriber(cfg)
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TUTORLY_SPEECH_MODEL", "whisper-large")
	t.Setenv("TUTORLY_SPEECH_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("TUTORLY_SPEECH_SAMPLE_RATE", "8000")

	cfg := ConfigFromEnv()
	assert.Equal(t, "whisper-large", cfg.Model)
	assert.Equal(t, "sk-fallback", cfg.APIKey)
	assert.Equal(t, 8000, cfg.SampleRate)
	assert.Equal(t, 1, cfg.Channels)
}
