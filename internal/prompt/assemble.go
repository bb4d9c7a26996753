// Package prompt builds the bounded instruction sent to the generation
// provider for each tutoring turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/session"
)

const (
	// MaxContextChars bounds the retrieved reference material.
	MaxContextChars = 600

	// MaxEntryChars bounds each history entry.
	MaxEntryChars = 200

	// MaxPriorChars bounds the quoted reply in a continuation prompt.
	MaxPriorChars = 1200
)

// SystemPrompt is the persona sent with every tutoring request.
const SystemPrompt = `You are a patient, encouraging tutor for school students. You adapt to the student's grade, keep answers short, and never make up facts.`

// Input is everything the assembler needs for one turn.
type Input struct {
	Approach         session.Approach
	Student          session.Student
	RetrievedContext string
	History          []session.ConversationEntry
	Topic            string
	IsFollowUp       bool
	OriginalQuestion string
	CurrentInput     string
}

// Assemble builds the instruction for a normal turn. The output is a pure
// function of the input.
func Assemble(in Input) string {
	var b strings.Builder

	writeGradeDirective(&b, in.Student.GradeLevel)

	b.WriteString("\nApproach:\n")
	b.WriteString(approachInstruction(in.Approach))
	b.WriteString("\n")

	b.WriteString("\nContext:\n")
	if in.Topic != "" {
		b.WriteString(fmt.Sprintf("Current topic: %s\n", in.Topic))
	} else {
		b.WriteString("Current topic: none yet\n")
	}
	if in.IsFollowUp && in.OriginalQuestion != "" {
		b.WriteString(fmt.Sprintf("This is a follow-up to the student's original question: %q\n", Truncate(in.OriginalQuestion, MaxEntryChars)))
		b.WriteString("Stay on this topic. Do not switch to a different subject.\n")
	}

	if ctx := strings.TrimSpace(in.RetrievedContext); ctx != "" {
		b.WriteString("\nReference material:\n")
		b.WriteString(Truncate(ctx, MaxContextChars))
		b.WriteString("\n")
	}

	if len(in.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, e := range in.History {
			b.WriteString(fmt.Sprintf("%s: %s\n", speaker(e.Role), Truncate(e.Content, MaxEntryChars)))
		}
	}

	b.WriteString("\nStudent's message:\n")
	b.WriteString(in.CurrentInput)

	return b.String()
}

// ContinuationInput is what the assembler needs to extend a prior reply.
type ContinuationInput struct {
	Student  session.Student
	Topic    string
	Approach session.Approach
	Prior    string
}

// AssembleContinuation builds the instruction asking the provider to
// continue its previous reply.
func AssembleContinuation(in ContinuationInput) string {
	var b strings.Builder

	writeGradeDirective(&b, in.Student.GradeLevel)

	b.WriteString("\nApproach:\n")
	b.WriteString(approachInstruction(in.Approach))
	b.WriteString("\n")

	if in.Topic != "" {
		b.WriteString(fmt.Sprintf("\nCurrent topic: %s\n", in.Topic))
	}

	b.WriteString("\nYour previous reply was:\n")
	b.WriteString(fmt.Sprintf("%q\n", truncateHead(in.Prior, MaxPriorChars)))
	b.WriteString(`
Instructions:
The student asked you to keep going. Continue from where you left off. Do not repeat anything you already said and do not start over.`)

	return b.String()
}

func writeGradeDirective(b *strings.Builder, grade int) {
	band := BandFor(grade)
	b.WriteString(fmt.Sprintf("The student is in grade %d.\n", grade))
	switch band.Level {
	case LevelEarly:
		b.WriteString("Use very simple words and short sentences. Compare ideas to everyday things a young child knows.\n")
	case LevelMiddle:
		b.WriteString("Use clear, simple language. Introduce at most one new term and explain it.\n")
	case LevelUpperMiddle:
		b.WriteString("Use precise vocabulary and explain technical terms briefly.\n")
	case LevelHigh:
		b.WriteString("Use subject-appropriate terminology and connect ideas to broader concepts.\n")
	}
	b.WriteString(fmt.Sprintf("Your reply MUST be %d-%d words. Never exceed %d words. End with a complete sentence.\n",
		band.MinWords, band.MaxWords, band.MaxWords))
}

func approachInstruction(a session.Approach) string {
	switch a {
	case session.ApproachSocratic:
		return "Guide the student with one or two questions that lead them toward the answer. Do not give the answer outright."
	case session.ApproachExplanation:
		return "Explain the idea directly and clearly, with one concrete example."
	case session.ApproachProblemSolving:
		return "Work through the problem one step at a time. Show each step and ask the student to try the next one."
	case session.ApproachEncouragement:
		return "The student is finding this hard. Acknowledge their effort, break the idea into a smaller piece, and keep the tone warm."
	case session.ApproachCorrection:
		return "The student holds a misconception. Gently point out what is not quite right, explain the correct idea, and contrast the two."
	case session.ApproachNone:
		return "Explain the idea directly and clearly."
	default:
		panic(fmt.Sprintf("prompt: unhandled approach %v", a))
	}
}

func speaker(r session.Role) string {
	if r == session.RoleUser {
		return "Student"
	}
	return "Tutor"
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// truncateHead keeps the end of s, which is where a continuation resumes.
func truncateHead(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[len(r)-n:])
	}
	return "..." + string(r[len(r)-n+3:])
}
