package strategy

import (
	"strings"

	"github.com/abhisek/tutorly/internal/session"
)

const (
	matchedConfidence = 0.9
	defaultConfidence = 0.5
)

// needKeywords is checked in order; the first need with a matching keyword
// wins.
var needKeywords = []struct {
	need     session.Need
	keywords []string
}{
	{session.NeedEncouragement, []string{
		"give up", "too hard", "i can't", "i cant", "frustrated", "i'm bad at", "hopeless", "i'll never",
	}},
	{session.NeedClarification, []string{
		"what do you mean", "i don't understand", "i dont understand", "don't get", "dont get",
		"confused", "clarify", "what does that mean", "say that again",
	}},
	{session.NeedStepByStepHelp, []string{
		"step by step", "step-by-step", "walk me through", "how do i", "how do you solve", "show me how",
	}},
	{session.NeedPractice, []string{
		"practice", "quiz me", "test me", "give me a problem", "exercise", "another question",
	}},
	{session.NeedConceptExplanation, []string{
		"what is", "what are", "explain", "why", "how does", "tell me about", "define",
	}},
}

// ClassifyNeed infers what the student needs from their input.
func ClassifyNeed(input string) session.StudentNeed {
	norm := strings.ToLower(input)
	for _, nk := range needKeywords {
		for _, kw := range nk.keywords {
			if strings.Contains(norm, kw) {
				return session.StudentNeed{Need: nk.need, Confidence: matchedConfidence}
			}
		}
	}
	return session.StudentNeed{Need: session.NeedConceptExplanation, Confidence: defaultConfidence}
}

// Succeeded reports whether a user turn with this need counts as going well
// in the look-back window.
func Succeeded(n session.Need) bool {
	return n != session.NeedClarification && n != session.NeedEncouragement
}
