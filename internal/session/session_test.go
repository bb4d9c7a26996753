package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return New("SCIENCE", "chat", Student{ID: "stu-1", GradeLevel: 6}, time.Now())
}

func TestNewMessage(t *testing.T) {
	now := time.Now()
	u := NewMessage("hi", true, now)
	a := NewMessage("hello", false, now)

	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, u.ID, a.ID)
	assert.Equal(t, StatusSending, u.Status)
	assert.Equal(t, StatusSent, a.Status)
	assert.Equal(t, now, u.Timestamp)
}

func TestRecordBoundsHistory(t *testing.T) {
	s := newTestSession()
	for i := 0; i < MaxHistory+5; i++ {
		s.Record(ConversationEntry{Role: RoleUser, Content: fmt.Sprintf("q%d", i)})
	}

	if len(s.History) != MaxHistory {
		t.Fatalf("history len = %d, want %d", len(s.History), MaxHistory)
	}
	if s.History[0].Content != "q5" {
		t.Errorf("oldest entry = %q, want q5", s.History[0].Content)
	}

	recent := s.Recent(HistoryWindow)
	require.Len(t, recent, HistoryWindow)
	assert.Equal(t, "q14", recent[HistoryWindow-1].Content)

	// Recent returns a copy.
	recent[0].Content = "mutated"
	assert.NotEqual(t, "mutated", s.History[MaxHistory-HistoryWindow].Content)
}

func TestRecentShortHistory(t *testing.T) {
	s := newTestSession()
	assert.Nil(t, s.Recent(5))
	s.Record(ConversationEntry{Role: RoleUser, Content: "only"})
	assert.Len(t, s.Recent(5), 1)
}

func TestChangeTopicKeepsMessages(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(NewMessage("what are volcanoes?", true, time.Now()))
	s.IncrementAttempts("volcanoes")
	s.Record(ConversationEntry{Role: RoleUser, Content: "what are volcanoes?"})

	s.ChangeTopic("photosynthesis")

	assert.Equal(t, "photosynthesis", s.CurrentTopic)
	assert.Empty(t, s.AttemptCounts)
	assert.Empty(t, s.History)
	assert.Len(t, s.Messages, 1)
}

func TestLastAssistantIndex(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, -1, s.LastAssistantIndex())

	now := time.Now()
	s.AppendMessage(NewMessage("q", true, now))
	s.AppendMessage(NewMessage("a", false, now))
	s.AppendMessage(NewMessage("q2", true, now))

	assert.Equal(t, 1, s.LastAssistantIndex())
	assert.Equal(t, 2, s.MessageIndex(s.Messages[2].ID))
	assert.Equal(t, -1, s.MessageIndex("nope"))
}

func TestNudgeMasteryClamped(t *testing.T) {
	s := newTestSession()

	for i := 0; i < 15; i++ {
		s.NudgeMastery("volcanoes", false)
	}
	assert.InDelta(t, 1.0, s.ConceptMastery["volcanoes"], 1e-9)

	s.ConceptMastery["rome"] = 0.02
	got := s.NudgeMastery("rome", true)
	assert.Zero(t, got)

	assert.Zero(t, s.NudgeMastery("", false))
	_, ok := s.ConceptMastery[""]
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(NewMessage("q", true, time.Now()))
	s.IncrementAttempts("x")
	s.SuggestedTopics = []string{"Cells"}

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.AttemptCounts["x"] = 99
	c.SuggestedTopics[0] = "Atoms"

	assert.Equal(t, "q", s.Messages[0].Content)
	assert.Equal(t, 1, s.AttemptCounts["x"])
	assert.Equal(t, "Cells", s.SuggestedTopics[0])
}

func TestApproachRoundTrip(t *testing.T) {
	for _, a := range Approaches {
		got, err := ParseApproach(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseApproach("")
	require.NoError(t, err)
	assert.Equal(t, ApproachNone, got)

	_, err = ParseApproach("lecture")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	for _, st := range []Status{StatusSending, StatusSent, StatusFailed} {
		got, err := ParseStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParseStatus("queued")
	assert.Error(t, err)
}
