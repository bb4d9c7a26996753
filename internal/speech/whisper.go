package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const bitsPerSample = 16

// WhisperTranscriber transcribes audio with the OpenAI transcription API.
type WhisperTranscriber struct {
	client *openai.Client
	cfg    Config
}

// NewWhisperTranscriber creates a transcriber from cfg.
func NewWhisperTranscriber(cfg Config) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required for transcription")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &WhisperTranscriber{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, pcm []byte, locale string) (string, error) {
	wav, err := EncodeWAV(pcm, w.cfg.SampleRate, w.cfg.Channels)
	if err != nil {
		return "", err
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: "speech.wav",
		Reader:   bytes.NewReader(wav),
		Language: language(locale),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return resp.Text, nil
}

// language reduces a locale such as "en-US" to the ISO-639-1 code the API
// expects.
func language(locale string) string {
	for i, r := range locale {
		if r == '-' || r == '_' {
			return locale[:i]
		}
	}
	return locale
}

// EncodeWAV wraps 16-bit little-endian PCM in a RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid audio format: %d Hz, %d channels", sampleRate, channels)
	}
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes(), nil
}
