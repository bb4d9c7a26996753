package prompt

// Level identifies a grade band.
type Level int

const (
	LevelEarly       Level = iota // grades 1-3
	LevelMiddle                   // grades 4-6
	LevelUpperMiddle              // grades 7-9
	LevelHigh                     // grades 10-12
)

// Band is the response budget for a range of grades. Budgets grow
// monotonically with grade.
type Band struct {
	Level     Level
	MinGrade  int
	MaxGrade  int
	MinWords  int
	MaxWords  int
	MaxTokens int

	// OutputWordCap is the hard limit enforced on generated text when the
	// provider ignores the word budget.
	OutputWordCap int
}

var bands = []Band{
	{Level: LevelEarly, MinGrade: 1, MaxGrade: 3, MinWords: 30, MaxWords: 40, MaxTokens: 150, OutputWordCap: 80},
	{Level: LevelMiddle, MinGrade: 4, MaxGrade: 6, MinWords: 50, MaxWords: 70, MaxTokens: 250, OutputWordCap: 140},
	{Level: LevelUpperMiddle, MinGrade: 7, MaxGrade: 9, MinWords: 70, MaxWords: 100, MaxTokens: 350, OutputWordCap: 200},
	{Level: LevelHigh, MinGrade: 10, MaxGrade: 12, MinWords: 100, MaxWords: 120, MaxTokens: 450, OutputWordCap: 240},
}

// BandFor returns the band for a grade. Grades below 1 use the first band and
// grades above 12 use the last.
func BandFor(grade int) Band {
	for _, b := range bands {
		if grade <= b.MaxGrade {
			return b
		}
	}
	return bands[len(bands)-1]
}
