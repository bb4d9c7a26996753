package strategy

import (
	"testing"

	"github.com/abhisek/tutorly/internal/session"
)

func entry(content string, ok bool) session.ConversationEntry {
	return session.ConversationEntry{Role: session.RoleUser, Content: content, Success: ok}
}

func reply() session.ConversationEntry {
	return session.ConversationEntry{Role: session.RoleAssistant, Content: "reply", Success: true}
}

func TestSelect(t *testing.T) {
	struggling := []session.ConversationEntry{entry("huh", false), reply(), entry("i give up", false)}
	misconception := []session.ConversationEntry{entry("but i thought the sun moves", true)}

	tests := []struct {
		name     string
		need     session.Need
		attempts int
		recent   []session.ConversationEntry
		grade    int
		want     session.Approach
	}{
		{"young concept explanation", session.NeedConceptExplanation, 5, struggling, 2, session.ApproachExplanation},
		{"struggling with many attempts", session.NeedPractice, 4, struggling, 6, session.ApproachEncouragement},
		{"attempts alone over threshold", session.NeedPractice, 3, nil, 6, session.ApproachEncouragement},
		{"struggling but few attempts", session.NeedPractice, 2, struggling, 6, session.ApproachProblemSolving},
		{"misconception", session.NeedConceptExplanation, 1, misconception, 8, session.ApproachCorrection},
		{"young first attempt", session.NeedPractice, 0, nil, 3, session.ApproachExplanation},
		{"clarification first attempt", session.NeedClarification, 0, nil, 7, session.ApproachSocratic},
		{"clarification repeated", session.NeedClarification, 1, nil, 7, session.ApproachExplanation},
		{"step by step", session.NeedStepByStepHelp, 1, nil, 9, session.ApproachProblemSolving},
		{"practice", session.NeedPractice, 0, nil, 5, session.ApproachProblemSolving},
		{"concept explanation", session.NeedConceptExplanation, 0, nil, 10, session.ApproachExplanation},
		{"fallback older", session.NeedEncouragement, 1, nil, 10, session.ApproachSocratic},
		{"fallback young", session.NeedEncouragement, 1, nil, 2, session.ApproachExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.need, tt.attempts, tt.recent, tt.grade)
			if got != tt.want {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStrugglingUsesLastThree(t *testing.T) {
	recent := []session.ConversationEntry{
		entry("a", false), entry("b", false), reply(), reply(), entry("c", false),
	}
	if IsStruggling(0, recent) {
		t.Error("only one failure in last three entries; should not be struggling")
	}
	if !IsStruggling(3, nil) {
		t.Error("three attempts should count as struggling")
	}
}

func TestHasMisconceptionIgnoresAssistant(t *testing.T) {
	recent := []session.ConversationEntry{
		{Role: session.RoleAssistant, Content: "Isn't it interesting?", Success: true},
	}
	if HasMisconception(recent) {
		t.Error("assistant phrasing should not count as a misconception")
	}
	recent = append(recent, entry("Isn't it the moon that causes tides?", true))
	if !HasMisconception(recent) {
		t.Error("expected misconception")
	}
}

func TestClassifyNeed(t *testing.T) {
	tests := []struct {
		input string
		want  session.Need
		conf  float64
	}{
		{"I give up, this is too hard", session.NeedEncouragement, 0.9},
		{"I don't understand what you mean", session.NeedClarification, 0.9},
		{"Can you walk me through it step by step?", session.NeedStepByStepHelp, 0.9},
		{"Quiz me on fractions", session.NeedPractice, 0.9},
		{"What is photosynthesis?", session.NeedConceptExplanation, 0.9},
		{"volcanoes", session.NeedConceptExplanation, 0.5},
	}
	for _, tt := range tests {
		got := ClassifyNeed(tt.input)
		if got.Need != tt.want || got.Confidence != tt.conf {
			t.Errorf("ClassifyNeed(%q) = %v/%v, want %v/%v", tt.input, got.Need, got.Confidence, tt.want, tt.conf)
		}
	}
}

func TestSucceeded(t *testing.T) {
	if Succeeded(session.NeedClarification) || Succeeded(session.NeedEncouragement) {
		t.Error("clarification and encouragement needs count as unsuccessful")
	}
	if !Succeeded(session.NeedPractice) {
		t.Error("practice need counts as successful")
	}
}
