package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/tutorly/internal/session"
)

func TestBandForMonotonic(t *testing.T) {
	prev := BandFor(1)
	for g := 2; g <= 12; g++ {
		b := BandFor(g)
		if b.MaxWords < prev.MaxWords || b.MaxTokens < prev.MaxTokens || b.OutputWordCap < prev.OutputWordCap {
			t.Fatalf("grade %d band %+v is smaller than grade %d band %+v", g, b, g-1, prev)
		}
		prev = b
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		grade     int
		minWords  int
		maxWords  int
		maxTokens int
	}{
		{0, 30, 40, 150},
		{2, 30, 40, 150},
		{4, 50, 70, 250},
		{6, 50, 70, 250},
		{9, 70, 100, 350},
		{10, 100, 120, 450},
		{14, 100, 120, 450},
	}
	for _, tt := range tests {
		b := BandFor(tt.grade)
		if b.MinWords != tt.minWords || b.MaxWords != tt.maxWords || b.MaxTokens != tt.maxTokens {
			t.Errorf("BandFor(%d) = %+v", tt.grade, b)
		}
	}
}

func TestAssembleSectionsInOrder(t *testing.T) {
	out := Assemble(Input{
		Approach:         session.ApproachSocratic,
		Student:          session.Student{GradeLevel: 6},
		RetrievedContext: "Volcanoes form where magma reaches the surface.",
		History: []session.ConversationEntry{
			{Role: session.RoleUser, Content: "what are volcanoes?"},
			{Role: session.RoleAssistant, Content: "Mountains that erupt."},
		},
		Topic:            "volcanoes",
		IsFollowUp:       true,
		OriginalQuestion: "what are volcanoes?",
		CurrentInput:     "for example?",
	})

	markers := []string{
		"grade 6",
		"50-70 words",
		"Approach:",
		"questions that lead them",
		"Current topic: volcanoes",
		"original question",
		"Stay on this topic",
		"Reference material:",
		"Recent conversation:",
		"Student: what are volcanoes?",
		"Tutor: Mountains that erupt.",
		"Student's message:\nfor example?",
	}
	pos := 0
	for _, m := range markers {
		i := strings.Index(out[pos:], m)
		if i < 0 {
			t.Fatalf("marker %q missing or out of order in:\n%s", m, out)
		}
		pos += i
	}
	assert.True(t, strings.HasSuffix(out, "for example?"))
}

func TestAssembleDeterministic(t *testing.T) {
	in := Input{Approach: session.ApproachExplanation, Student: session.Student{GradeLevel: 3}, CurrentInput: "why is the sky blue"}
	assert.Equal(t, Assemble(in), Assemble(in))
}

func TestAssembleOmitsFollowUpBlockForNewQuestion(t *testing.T) {
	out := Assemble(Input{
		Approach:         session.ApproachExplanation,
		Student:          session.Student{GradeLevel: 8},
		Topic:            "rome",
		OriginalQuestion: "who built rome?",
		CurrentInput:     "who built rome?",
	})
	assert.NotContains(t, out, "Stay on this topic")
	assert.NotContains(t, out, "Reference material:")
	assert.NotContains(t, out, "Recent conversation:")
}

func TestAssembleTruncatesContextAndHistory(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out := Assemble(Input{
		Approach:         session.ApproachCorrection,
		Student:          session.Student{GradeLevel: 11},
		RetrievedContext: long,
		History:          []session.ConversationEntry{{Role: session.RoleUser, Content: long}},
		CurrentInput:     "ok",
	})
	assert.Less(t, len(out), MaxContextChars+MaxEntryChars+1500)
}

func TestEveryApproachHasInstruction(t *testing.T) {
	seen := map[string]session.Approach{}
	for _, a := range session.Approaches {
		text := approachInstruction(a)
		if text == "" {
			t.Fatalf("approach %v has no instruction", a)
		}
		if other, dup := seen[text]; dup {
			t.Fatalf("approaches %v and %v share an instruction", a, other)
		}
		seen[text] = a
	}
}

func TestAssembleContinuation(t *testing.T) {
	out := AssembleContinuation(ContinuationInput{
		Student:  session.Student{GradeLevel: 5},
		Topic:    "fractions",
		Approach: session.ApproachExplanation,
		Prior:    "A fraction has a top number and",
	})
	assert.Contains(t, out, `"A fraction has a top number and"`)
	assert.Contains(t, out, "Continue from where you left off")
	assert.Contains(t, out, "Do not repeat")
	assert.Contains(t, out, "Current topic: fractions")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello world", 6))
	assert.Equal(t, "...rld", truncateHead("hello world", 6))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 7))
}
