package tutor

import (
	"slices"

	"github.com/abhisek/tutorly/internal/session"
)

// SessionView is an immutable snapshot of what the student should see.
type SessionView struct {
	SessionID       string            `json:"session_id"`
	SubjectID       string            `json:"subject_id"`
	GradeLevel      int               `json:"grade_level"`
	Topic           string            `json:"topic"`
	Messages        []session.Message `json:"messages"`
	SuggestedTopics []string          `json:"suggested_topics"`

	// Loading is true while a turn is generating.
	Loading bool `json:"loading"`
	// Error is set when the last turn failed. Cleared by the next
	// successful turn or DismissError.
	Error string `json:"error,omitempty"`
	// Warning reports a non-fatal problem such as unintelligible audio.
	Warning string `json:"warning,omitempty"`
	// Status is a transient progress note such as "retrying (2/3)".
	Status string `json:"status,omitempty"`
	// Approach is the teaching approach of the latest reply.
	Approach  string `json:"approach,omitempty"`
	Recording bool   `json:"recording"`
}

// viewState holds the presentation flags that live beside the session.
type viewState struct {
	loading   bool
	err       string
	warning   string
	status    string
	approach  session.Approach
	recording bool
}

func buildView(s *session.Session, vs viewState) SessionView {
	v := SessionView{
		Loading:   vs.loading,
		Error:     vs.err,
		Warning:   vs.warning,
		Status:    vs.status,
		Approach:  vs.approach.String(),
		Recording: vs.recording,
	}
	if s != nil {
		v.SessionID = s.ID
		v.SubjectID = s.SubjectID
		v.GradeLevel = s.Student.GradeLevel
		v.Topic = s.CurrentTopic
		v.Messages = slices.Clone(s.Messages)
		v.SuggestedTopics = slices.Clone(s.SuggestedTopics)
	}
	return v
}

// offer delivers v to a subscriber channel of capacity one, replacing an
// undelivered older view.
func offer(ch chan SessionView, v SessionView) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
