// Package topic tracks what a tutoring conversation is about. It classifies
// each input as a follow-up or a topic change relative to the current topic.
package topic

import (
	"regexp"
	"strings"
	"unicode"
)

// ChangeThreshold is the word-overlap ratio below which two topics are
// considered different.
const ChangeThreshold = 0.3

// shortFollowUpLen is the maximum length of a terse follow-up such as "why?".
const shortFollowUpLen = 15

// followUpPhrases are phrasings that continue the current topic.
var followUpPhrases = []string{
	"for example",
	"for instance",
	"tell me more",
	"more about",
	"continue",
	"go on",
	"what else",
	"what about",
	"give me an example",
	"another example",
	"what do you mean",
	"why is that",
	"how come",
	"and then",
	"keep going",
}

var shortContinuation = regexp.MustCompile(`^(continue|more|go on|finish|complete)\??$`)

// questionPrefixes are stripped to find the topic of a question. Longer
// prefixes come first so the most specific one wins.
var questionPrefixes = []string{
	"i want to learn about",
	"i want to know about",
	"can you tell me about",
	"can you explain",
	"tell me about",
	"teach me about",
	"history of",
	"what is the",
	"what are the",
	"what is",
	"what are",
	"what's",
	"who was",
	"who were",
	"how does",
	"how do",
	"explain",
	"define",
}

// Result is the classification of one input.
type Result struct {
	IsFollowUp     bool
	IsTopicChange  bool
	ExtractedTopic string
	// Topic is the topic the turn should be handled under.
	Topic string
}

// Classify decides whether input follows up on currentTopic, changes it, or
// stays within it.
func Classify(input, currentTopic string) Result {
	norm := normalize(input)
	res := Result{
		IsFollowUp:     IsFollowUp(norm),
		ExtractedTopic: ExtractTopic(norm),
	}

	switch {
	case res.IsFollowUp:
		res.Topic = currentTopic
	case currentTopic == "":
		res.Topic = res.ExtractedTopic
	case IsChange(currentTopic, res.ExtractedTopic):
		res.IsTopicChange = true
		res.Topic = res.ExtractedTopic
	default:
		res.Topic = currentTopic
	}
	return res
}

// IsFollowUp reports whether input continues the current topic.
func IsFollowUp(input string) bool {
	norm := normalize(input)
	for _, p := range followUpPhrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	if shortContinuation.MatchString(norm) {
		return true
	}
	return len(norm) <= shortFollowUpLen &&
		(strings.Contains(norm, "?") || strings.Contains(norm, "more"))
}

// ExtractTopic pulls the subject of a question out of input.
func ExtractTopic(input string) string {
	norm := strings.TrimRightFunc(normalize(input), isTrailingPunct)
	for _, p := range questionPrefixes {
		if rest, ok := strings.CutPrefix(norm, p+" "); ok {
			if rest = strings.TrimSpace(rest); rest != "" {
				return rest
			}
		}
	}
	for _, w := range strings.Fields(norm) {
		w = strings.TrimFunc(w, isTrailingPunct)
		if len(w) > 3 {
			return w
		}
	}
	return ""
}

// Overlap is |A∩B| / max(|A|,|B|,1) over the words longer than three
// characters in a and b.
func Overlap(a, b string) float64 {
	wa, wb := contentWords(a), contentWords(b)
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(max(len(wa), len(wb), 1))
}

// IsChange reports whether next is a different topic from current. Empty
// topics never count as a change.
func IsChange(current, next string) bool {
	if strings.TrimSpace(current) == "" || strings.TrimSpace(next) == "" {
		return false
	}
	return Overlap(current, next) < ChangeThreshold
}

func contentWords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(normalize(s)) {
		w = strings.TrimFunc(w, isTrailingPunct)
		if len(w) > 3 {
			out[w] = struct{}{}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isTrailingPunct(r rune) bool {
	return unicode.IsPunct(r) && r != '-'
}
