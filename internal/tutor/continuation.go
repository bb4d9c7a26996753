package tutor

import (
	"regexp"
	"strings"
)

// shortContinuationLen bounds inputs that merely contain a trigger word.
const shortContinuationLen = 20

var continuationWords = []string{"continue", "finish", "complete", "go on", "more", "next"}

var continuationPattern = regexp.MustCompile(`\b(continue|finish|complete|go on|more|next)\b`)

// IsContinuationRequest reports whether input asks to extend the previous
// reply rather than ask something new.
func IsContinuationRequest(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return false
	}
	for _, w := range continuationWords {
		if s == w {
			return true
		}
	}
	return len(s) < shortContinuationLen && continuationPattern.MatchString(s)
}

func mergeContinuation(prior, addition string) string {
	if strings.TrimSpace(prior) == "" {
		return addition
	}
	return prior + "\n\n" + addition
}
