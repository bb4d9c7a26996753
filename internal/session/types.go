package session

import "fmt"

// Status is the delivery state of a message.
type Status int

const (
	StatusSending Status = iota // Waiting on generation
	StatusSent                  // Delivered
	StatusFailed                // Generation failed after retries
)

func (s Status) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusSending, StatusSent, StatusFailed} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown message status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Approach is the pedagogical strategy chosen for a turn.
type Approach int

const (
	ApproachNone Approach = iota // Not set (user messages)
	ApproachSocratic
	ApproachExplanation
	ApproachProblemSolving
	ApproachEncouragement
	ApproachCorrection
)

// Approaches lists every teaching approach.
var Approaches = []Approach{
	ApproachSocratic,
	ApproachExplanation,
	ApproachProblemSolving,
	ApproachEncouragement,
	ApproachCorrection,
}

func (a Approach) String() string {
	switch a {
	case ApproachNone:
		return ""
	case ApproachSocratic:
		return "socratic"
	case ApproachExplanation:
		return "explanation"
	case ApproachProblemSolving:
		return "problem_solving"
	case ApproachEncouragement:
		return "encouragement"
	case ApproachCorrection:
		return "correction"
	default:
		return fmt.Sprintf("approach(%d)", int(a))
	}
}

// ParseApproach converts a stored approach string back to an Approach.
// The empty string maps to ApproachNone.
func ParseApproach(s string) (Approach, error) {
	if s == "" {
		return ApproachNone, nil
	}
	for _, a := range Approaches {
		if a.String() == s {
			return a, nil
		}
	}
	return ApproachNone, fmt.Errorf("unknown teaching approach %q", s)
}

func (a Approach) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Approach) UnmarshalText(b []byte) error {
	v, err := ParseApproach(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Need is what the student appears to need on this turn.
type Need int

const (
	NeedConceptExplanation Need = iota
	NeedClarification
	NeedStepByStepHelp
	NeedPractice
	NeedEncouragement
)

func (n Need) String() string {
	switch n {
	case NeedConceptExplanation:
		return "concept_explanation"
	case NeedClarification:
		return "clarification"
	case NeedStepByStepHelp:
		return "step_by_step_help"
	case NeedPractice:
		return "practice"
	case NeedEncouragement:
		return "encouragement"
	default:
		return fmt.Sprintf("need(%d)", int(n))
	}
}

// StudentNeed is a classified need with its confidence in [0, 1].
type StudentNeed struct {
	Need       Need
	Confidence float64
}

// Role identifies who produced a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationEntry is one item of the bounded look-back window.
type ConversationEntry struct {
	Role    Role
	Content string
	Concept string
	Success bool
}

// Student is the learner profile.
type Student struct {
	ID         string
	Name       string
	GradeLevel int
}
