package tutor

import (
	"errors"

	"github.com/abhisek/tutorly/internal/speech"
)

var (
	// ErrNoActiveSession is returned when input arrives before StartSession.
	ErrNoActiveSession = errors.New("tutor: no active session")

	// ErrNoSubjectSelected is returned when the session has no subject.
	ErrNoSubjectSelected = errors.New("tutor: no subject selected")

	// ErrQueueFull is returned when too many turns are waiting.
	ErrQueueFull = errors.New("tutor: too many pending requests")

	// ErrSpeechUnavailable is returned when recording without a transcriber.
	ErrSpeechUnavailable = errors.New("tutor: speech input is not configured")

	// ErrNotRecording is returned by StopRecording when nothing is recording.
	ErrNotRecording = errors.New("tutor: not recording")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("tutor: controller closed")

	// ErrTurnDiscarded is returned by ProcessTurn when the session was
	// cleared or replaced before the turn finished.
	ErrTurnDiscarded = errors.New("tutor: turn discarded")
)

// Messages shown in SessionView.
const (
	GenerationFailedMessage = "I was unable to process that. Please try again."
	NoSessionMessage        = "Start a session first."
	NoSubjectMessage        = "Choose a subject first."
	QueueFullMessage        = "Please wait for the current answer before asking more."
	NoAudioMessage          = "No audio was recorded. Try again."
	NotUnderstoodMessage    = "Sorry, I didn't catch that. Try again."
	TranscriptionMessage    = "Speech recognition is not available right now."
)

// userMessage maps an error to the text shown to the student.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoActiveSession):
		return NoSessionMessage
	case errors.Is(err, ErrNoSubjectSelected):
		return NoSubjectMessage
	case errors.Is(err, ErrQueueFull):
		return QueueFullMessage
	case errors.Is(err, speech.ErrEmptyAudioBuffer):
		return NoAudioMessage
	case errors.Is(err, speech.ErrTranscriptionEmpty):
		return NotUnderstoodMessage
	default:
		return GenerationFailedMessage
	}
}
