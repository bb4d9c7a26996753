package curriculum

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/topic"
)

// maxRetrieved is the number of topic summaries returned per lookup.
const maxRetrieved = 3

// Retriever finds reference material for a turn's topic.
type Retriever struct {
	provider Provider
}

// NewRetriever creates a retriever over provider.
func NewRetriever(provider Provider) *Retriever {
	return &Retriever{provider: provider}
}

// Retrieve returns summaries of grade-appropriate topics related to
// turnTopic, one per line. It returns "" when nothing matches.
func (r *Retriever) Retrieve(ctx context.Context, subjectID string, grade int, turnTopic string) (string, error) {
	if strings.TrimSpace(turnTopic) == "" {
		return "", nil
	}
	topics, err := r.provider.TopicsFor(ctx, subjectID, grade)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	needle := strings.ToLower(turnTopic)
	var b strings.Builder
	n := 0
	for _, t := range topics {
		if n == maxRetrieved {
			break
		}
		if !t.GradeRange.Contains(grade) || t.Summary == "" {
			continue
		}
		title := strings.ToLower(t.Title)
		if topic.Overlap(title, needle) == 0 && !strings.Contains(title, needle) && !strings.Contains(needle, title) {
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", t.Title, t.Summary))
		n++
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
