package tutor

import "testing"

func TestIsContinuationRequest(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"continue", true},
		{"  Continue ", true},
		{"go on", true},
		{"next", true},
		{"more", true},
		{"please continue", true},
		{"can you finish?", true},
		{"tell me more about volcanoes please", false},
		{"what happens next in the water cycle", false},
		{"furthermore", false},
		{"", false},
		{"why?", false},
	}
	for _, tt := range tests {
		if got := IsContinuationRequest(tt.input); got != tt.want {
			t.Errorf("IsContinuationRequest(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMergeContinuation(t *testing.T) {
	if got := mergeContinuation("First part.", "Second part."); got != "First part.\n\nSecond part." {
		t.Errorf("mergeContinuation = %q", got)
	}
	if got := mergeContinuation("", "Only."); got != "Only." {
		t.Errorf("mergeContinuation with empty prior = %q", got)
	}
}
