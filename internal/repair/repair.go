// Package repair fixes generated replies that were cut off or ran long.
// It never calls the generation provider.
package repair

import (
	"strings"
	"unicode"

	"github.com/abhisek/tutorly/internal/prompt"
)

// Fallback replaces an empty reply.
const Fallback = "I'm not sure how to answer that yet. Could you ask it another way?"

// cutReserve is the number of words left free below the cap after a hard
// cut, so a completion still fits.
const cutReserve = 6

// connectives that leave a sentence hanging, with the words that finish it.
// Longer connectives come first so " for example" is not read as a shorter
// suffix.
var connectives = []struct {
	suffix     string
	completion string
}{
	{" for example", " the ones above"},
	{" such as", " many others"},
	{" because", " of this"},
	{" like", " many others"},
	{" and", " more"},
	{" but", " there is more"},
}

const trailingJunk = ",;:-—– \t\r\n"

// IsIncomplete reports whether text looks cut off: empty, not ending in
// sentence punctuation, ending with a dangling connective, or with
// unbalanced parentheses or quotes.
func IsIncomplete(text string) bool {
	t := strings.TrimRightFunc(text, unicode.IsSpace)
	if t == "" {
		return true
	}
	if !endsSentence(t) {
		return true
	}
	if danglingConnective(t) >= 0 {
		return true
	}
	if unbalancedParens(t) {
		return true
	}
	return strings.Count(t, `"`)%2 == 1
}

// Repair returns a complete version of text that fits the output budget of
// the grade's band. It is idempotent: Repair(Repair(s, g), g) == Repair(s, g).
func Repair(text string, grade int) string {
	band := prompt.BandFor(grade)

	t := strings.TrimRightFunc(text, unicode.IsSpace)
	if t == "" {
		return Fallback
	}

	t = enforceCap(t, band.OutputWordCap)
	if !IsIncomplete(t) {
		return t
	}

	t = strings.TrimRight(t, trailingJunk)
	if t == "" {
		return Fallback
	}

	if completes(band.Level) {
		if i := danglingConnective(t); i >= 0 {
			c := connectives[i].completion
			if wordCount(t)+wordCount(c) <= band.OutputWordCap {
				t += c
			}
		}
	}

	t = balanceParens(t)
	if strings.Count(t, `"`)%2 == 1 {
		t += `"`
	}
	if !endsSentence(t) {
		t += "."
	}
	return t
}

// completes reports whether a band finishes dangling connectives with words
// rather than a bare period.
func completes(l prompt.Level) bool {
	switch l {
	case prompt.LevelMiddle, prompt.LevelUpperMiddle:
		return true
	default:
		return false
	}
}

func endsSentence(t string) bool {
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "!") || strings.HasSuffix(t, "?")
}

// danglingConnective returns the index into connectives of the suffix t
// ends with, or -1.
func danglingConnective(t string) int {
	lower := strings.ToLower(t)
	for i, c := range connectives {
		if strings.HasSuffix(lower, c.suffix) {
			return i
		}
	}
	return -1
}

func unbalancedParens(t string) bool {
	depth := 0
	for _, r := range t {
		switch r {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return true
			}
			depth--
		}
	}
	return depth != 0
}

// balanceParens drops closing parentheses with no opener and closes any
// left open.
func balanceParens(t string) string {
	var b strings.Builder
	depth := 0
	for _, r := range t {
		switch r {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
		}
		b.WriteRune(r)
	}
	b.WriteString(strings.Repeat(")", depth))
	return b.String()
}

// enforceCap cuts t to at most limit words, preferring the last sentence
// end inside the limit.
func enforceCap(t string, limit int) string {
	ends := wordEnds(t)
	if limit <= 0 || len(ends) <= limit {
		return t
	}

	head := t[:ends[limit-1]]
	if i := lastSentenceEnd(head); i > 0 {
		return head[:i+1]
	}

	keep := max(limit-cutReserve, 1)
	return t[:ends[keep-1]]
}

// lastSentenceEnd finds the last '.', '!' or '?' that ends a sentence in s.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			if i == len(s)-1 || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return i
			}
		}
	}
	return -1
}

// wordEnds returns the byte offset just past each word in t.
func wordEnds(t string) []int {
	var ends []int
	in := false
	for i, r := range t {
		space := unicode.IsSpace(r)
		if in && space {
			ends = append(ends, i)
		}
		in = !space
	}
	if in {
		ends = append(ends, len(t))
	}
	return ends
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
