// Package speech captures student audio and turns it into text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyAudioBuffer means recording stopped before any audio arrived.
	ErrEmptyAudioBuffer = errors.New("speech: no audio captured")

	// ErrTranscriptionEmpty means audio was captured but nothing was understood.
	ErrTranscriptionEmpty = errors.New("speech: nothing was understood")
)

// Transcriber converts PCM audio to text. An empty string means nothing was
// understood.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, locale string) (string, error)
}

// Transcribe runs t over pcm and maps empty input and empty output to
// ErrEmptyAudioBuffer and ErrTranscriptionEmpty.
func Transcribe(ctx context.Context, t Transcriber, pcm []byte, locale string) (string, error) {
	if len(pcm) == 0 {
		return "", ErrEmptyAudioBuffer
	}
	text, err := t.Transcribe(ctx, pcm, locale)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrTranscriptionEmpty
	}
	return text, nil
}

// StaticTranscriber returns fixed text. Useful offline and in tests.
type StaticTranscriber struct {
	Text string
	Err  error
}

func (s StaticTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return s.Text, s.Err
}
