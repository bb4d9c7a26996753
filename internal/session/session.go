package session

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxHistory is the number of conversation entries retained.
	MaxHistory = 10

	// HistoryWindow is the look-back suffix read by the turn pipeline.
	HistoryWindow = 5

	masterySuccessStep  = 0.1
	masteryStruggleStep = 0.05
)

// Message is one chat message. Messages are append-only except for the
// in-place extension of an assistant reply on continuation.
type Message struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	IsUser    bool          `json:"is_user"`
	Timestamp time.Time     `json:"timestamp"`
	Concept   string        `json:"concept,omitempty"`
	Approach  Approach      `json:"approach,omitempty"`
	Status    Status        `json:"status"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(content string, isUser bool, now time.Time) Message {
	status := StatusSent
	if isUser {
		status = StatusSending
	}
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: now,
		Status:    status,
	}
}

// Session is the mutable record of one conversation. It is owned by a
// single controller and is not safe for concurrent use.
type Session struct {
	ID               string
	SubjectID        string
	SessionType      string
	Student          Student
	CurrentTopic     string
	LastUserQuestion string
	Messages         []Message
	AttemptCounts    map[string]int
	ConceptMastery   map[string]float64
	StartedAt        time.Time

	// History is the bounded look-back window, oldest first.
	History []ConversationEntry

	// SuggestedTopics caches the topic suggestions shown for this session.
	SuggestedTopics []string
}

// New creates an empty session for a subject and student.
func New(subjectID, sessionType string, student Student, now time.Time) *Session {
	return &Session{
		ID:             uuid.New().String(),
		SubjectID:      subjectID,
		SessionType:    sessionType,
		Student:        student,
		AttemptCounts:  make(map[string]int),
		ConceptMastery: make(map[string]float64),
		StartedAt:      now,
	}
}

// AppendMessage adds a message and returns its index.
func (s *Session) AppendMessage(m Message) int {
	s.Messages = append(s.Messages, m)
	return len(s.Messages) - 1
}

// MessageIndex returns the index of the message with id, or -1.
func (s *Session) MessageIndex(id string) int {
	return slices.IndexFunc(s.Messages, func(m Message) bool { return m.ID == id })
}

// LastAssistantIndex returns the index of the newest assistant message, or -1.
func (s *Session) LastAssistantIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if !s.Messages[i].IsUser {
			return i
		}
	}
	return -1
}

// Record appends an entry to the look-back window, dropping the oldest
// entries beyond MaxHistory.
func (s *Session) Record(e ConversationEntry) {
	s.History = append(s.History, e)
	if len(s.History) > MaxHistory {
		s.History = slices.Clone(s.History[len(s.History)-MaxHistory:])
	}
}

// Recent returns a copy of the last n history entries.
func (s *Session) Recent(n int) []ConversationEntry {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := max(len(s.History)-n, 0)
	return slices.Clone(s.History[start:])
}

// ChangeTopic switches the current topic. Attempt counts and the look-back
// window are cleared; messages are kept.
func (s *Session) ChangeTopic(topic string) {
	s.CurrentTopic = topic
	clear(s.AttemptCounts)
	s.History = nil
}

// Attempts returns the attempt count for a concept.
func (s *Session) Attempts(concept string) int {
	return s.AttemptCounts[concept]
}

// IncrementAttempts bumps and returns the attempt count for a concept.
func (s *Session) IncrementAttempts(concept string) int {
	if s.AttemptCounts == nil {
		s.AttemptCounts = make(map[string]int)
	}
	s.AttemptCounts[concept]++
	return s.AttemptCounts[concept]
}

// NudgeMastery moves concept mastery up after a successful turn, or down
// when the student signalled struggle. The result is clamped to [0, 1].
func (s *Session) NudgeMastery(concept string, struggled bool) float64 {
	if concept == "" {
		return 0
	}
	if s.ConceptMastery == nil {
		s.ConceptMastery = make(map[string]float64)
	}
	v := s.ConceptMastery[concept]
	if struggled {
		v -= masteryStruggleStep
	} else {
		v += masterySuccessStep
	}
	v = min(max(v, 0), 1)
	s.ConceptMastery[concept] = v
	return v
}

// Clone returns a deep copy suitable for handing to observers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.AttemptCounts = maps.Clone(s.AttemptCounts)
	c.ConceptMastery = maps.Clone(s.ConceptMastery)
	c.History = slices.Clone(s.History)
	c.SuggestedTopics = slices.Clone(s.SuggestedTopics)
	return &c
}
