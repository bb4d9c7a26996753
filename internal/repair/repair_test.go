package repair

import (
	"strings"
	"testing"

	"github.com/abhisek/tutorly/internal/prompt"
)

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"Plants make food.", false},
		{"Is that right?", false},
		{"Wow!", false},
		{"Plants make food", true},
		{"Plants need light and", true},
		{"It works because", true},
		{"Animals such as", true},
		{"Plants (like ferns.", true},
		{"Plants) grow.", true},
		{`He said "hello.`, true},
		{`He said "hello."`, true},
		{"Plants (like ferns) grow.", false},
	}
	for _, tt := range tests {
		if got := IsIncomplete(tt.text); got != tt.want {
			t.Errorf("IsIncomplete(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		grade int
		want  string
	}{
		{"complete untouched", "Plants make food.", 5, "Plants make food."},
		{"trailing space trimmed", "Plants make food.  \n", 5, "Plants make food."},
		{"empty", "", 5, Fallback},
		{"young band period only", "Plants need light and", 2, "Plants need light and."},
		{"middle band and", "Plants need light and", 5, "Plants need light and more."},
		{"upper middle because", "Leaves are green because", 8, "Leaves are green because of this."},
		{"middle for example", "Many animals hibernate, for example", 6, "Many animals hibernate, for example the ones above."},
		{"high band period only", "Mitochondria produce ATP and", 11, "Mitochondria produce ATP and."},
		{"trailing junk stripped", "The answer is:", 7, "The answer is."},
		{"dash stripped", "The answer is —", 3, "The answer is."},
		{"open paren closed", "Ferns (a kind of plant", 9, "Ferns (a kind of plant)."},
		{"stray close removed", "Ferns grow) fast", 9, "Ferns grow fast."},
		{"odd quote closed", `She said "wait`, 4, `She said "wait".`},
		{"only junk", " , ;", 5, Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Repair(tt.text, tt.grade); got != tt.want {
				t.Errorf("Repair(%q, %d) = %q, want %q", tt.text, tt.grade, got, tt.want)
			}
		})
	}
}

func TestRepairIdempotent(t *testing.T) {
	long := strings.Repeat("word ", 300)
	inputs := []string{
		"",
		"Plants make food.",
		"Plants need light and",
		"Ferns (a kind of plant",
		`She said "wait`,
		"Ferns grow) fast,",
		"The answer is:",
		`He said "hello."`,
		long,
		long + "and",
		strings.Repeat("One sentence here. ", 60) + "and then",
	}
	for grade := 1; grade <= 12; grade++ {
		for _, in := range inputs {
			once := Repair(in, grade)
			twice := Repair(once, grade)
			if once != twice {
				t.Fatalf("grade %d: Repair not idempotent for %q:\nonce:  %q\ntwice: %q", grade, in, once, twice)
			}
			if IsIncomplete(once) {
				t.Fatalf("grade %d: Repair(%q) = %q is still incomplete", grade, in, once)
			}
		}
	}
}

func TestRepairEnforcesWordCap(t *testing.T) {
	for _, grade := range []int{2, 5, 8, 11} {
		limit := prompt.BandFor(grade).OutputWordCap

		got := Repair(strings.Repeat("word ", limit*3), grade)
		if n := len(strings.Fields(got)); n > limit {
			t.Errorf("grade %d: %d words exceeds cap %d", grade, n, limit)
		}
		if n := len(strings.Fields(got)); n != limit-cutReserve {
			t.Errorf("grade %d: hard cut kept %d words, want %d", grade, n, limit-cutReserve)
		}
	}
}

func TestRepairCutsAtSentenceEnd(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 50)
	got := Repair(text, 2)
	if !strings.HasSuffix(got, "here.") {
		t.Fatalf("expected cut at sentence end, got suffix %q", got[len(got)-20:])
	}
	if n := len(strings.Fields(got)); n > prompt.BandFor(2).OutputWordCap {
		t.Fatalf("%d words exceeds cap", n)
	}
}
