package curriculum

import (
	"slices"
	"strings"
)

const (
	compoundPenalty = 3
	vocabularyBonus = 2
)

var compoundMarkers = []string{" and ", ",", "&", "/", " vs "}

// gradeVocabulary holds words that signal a topic suits a grade band.
var gradeVocabulary = []struct {
	maxGrade int
	words    []string
}{
	{3, []string{"plants", "animal", "animals", "weather", "seasons", "families", "maps", "water", "habitats"}},
	{6, []string{"habitats", "cycle", "machines", "magnets", "energy", "explorers", "rivers", "continents", "volcanoes", "egypt"}},
	{9, []string{"cells", "ecosystems", "photosynthesis", "rome", "climate", "atoms", "chemical", "forces"}},
	{12, []string{"genetics", "evolution", "molecules", "reactions", "tectonics", "revolution", "government", "renaissance"}},
}

// MaxTopics returns how many suggestions a grade gets.
func MaxTopics(grade int) int {
	switch {
	case grade <= 3:
		return 5
	case grade <= 6:
		return 8
	case grade <= 9:
		return 10
	default:
		return 12
	}
}

// Rank filters topics to the grade, orders them so short single-concept
// titles come first, and truncates to MaxTopics(grade). Ties keep
// curriculum order.
func Rank(topics []Topic, grade int) []string {
	type scored struct {
		title string
		score int
	}
	var cands []scored
	for _, t := range topics {
		if !t.GradeRange.Contains(grade) {
			continue
		}
		cands = append(cands, scored{title: t.Title, score: score(t.Title, grade)})
	}
	slices.SortStableFunc(cands, func(a, b scored) int { return a.score - b.score })

	n := min(len(cands), MaxTopics(grade))
	out := make([]string, 0, n)
	for _, c := range cands[:n] {
		out = append(out, c.title)
	}
	return out
}

// score is lower for better suggestions.
func score(title string, grade int) int {
	lower := strings.ToLower(title)
	s := len(strings.Fields(lower))
	for _, m := range compoundMarkers {
		if strings.Contains(lower, m) {
			s += compoundPenalty
		}
	}
	if matchesVocabulary(lower, grade) {
		s -= vocabularyBonus
	}
	return s
}

func matchesVocabulary(lowerTitle string, grade int) bool {
	for _, v := range gradeVocabulary {
		if grade > v.maxGrade {
			continue
		}
		for _, w := range strings.Fields(lowerTitle) {
			if slices.Contains(v.words, w) {
				return true
			}
		}
		return false
	}
	return false
}
