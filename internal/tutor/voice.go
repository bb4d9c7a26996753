package tutor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/jobs"
	"github.com/abhisek/tutorly/internal/speech"
)

// StartRecording begins capturing audio from src as the recording job.
// A recording already in progress is replaced.
func (c *Controller) StartRecording(src speech.AudioSource) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return err
	}
	if c.transcriber == nil {
		c.vs.warning = TranscriptionMessage
		c.publishLocked()
		c.mu.Unlock()
		return ErrSpeechUnavailable
	}
	rec := speech.NewRecorder(src)
	c.recorder = rec
	c.vs.recording = true
	c.vs.warning = ""
	c.publishLocked()
	ctx := c.epochCtx
	c.mu.Unlock()

	c.jobs.Start(ctx, jobs.KindRecording, rec.Run)
	return nil
}

// StopRecording stops capture and transcribes what was recorded. The
// transcript is submitted like typed input.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	rec := c.recorder
	if rec == nil {
		c.mu.Unlock()
		return ErrNotRecording
	}
	c.recorder = nil
	c.vs.recording = false
	c.publishLocked()
	ctx, epoch := c.epochCtx, c.epoch
	c.mu.Unlock()

	c.jobs.Cancel(jobs.KindRecording)
	pcm := rec.Take()
	c.jobs.Start(ctx, jobs.KindTranscription, func(ctx context.Context) error {
		return c.transcribe(ctx, epoch, pcm)
	})
	return nil
}

func (c *Controller) transcribe(ctx context.Context, epoch uint64, pcm []byte) error {
	text, err := speech.Transcribe(ctx, c.transcriber, pcm, c.cfg.Locale)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		warning := TranscriptionMessage
		if errors.Is(err, speech.ErrEmptyAudioBuffer) || errors.Is(err, speech.ErrTranscriptionEmpty) {
			warning = userMessage(err)
		} else {
			c.logger.Warn("transcription failed", zap.Error(err))
		}

		c.mu.Lock()
		if epoch == c.epoch {
			c.vs.warning = warning
			c.publishLocked()
		}
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	stale := epoch != c.epoch
	c.mu.Unlock()
	if stale {
		return nil
	}
	if !c.debouncer.Submit(text) {
		c.mu.Lock()
		c.failLocked(ErrQueueFull)
		c.mu.Unlock()
	}
	return nil
}
