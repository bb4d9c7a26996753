// Package strategy picks the teaching approach for a turn.
package strategy

import (
	"strings"

	"github.com/abhisek/tutorly/internal/session"
)

const (
	youngGradeMax      = 3
	strugglingWindow   = 3
	strugglingFailures = 2
	strugglingAttempts = 3
	encouragementAfter = 2
)

var misconceptionPhrases = []string{
	"but i thought",
	"but isn't",
	"isn't it",
	"i thought",
	"doesn't it",
	"shouldn't it",
}

// Select returns the teaching approach for a turn. previousAttempts is the
// number of earlier attempts on the current concept; recent is the
// look-back window including the current input. Rules are applied in
// strict priority order.
func Select(need session.Need, previousAttempts int, recent []session.ConversationEntry, gradeLevel int) session.Approach {
	young := gradeLevel <= youngGradeMax

	if young && need == session.NeedConceptExplanation {
		return session.ApproachExplanation
	}
	if IsStruggling(previousAttempts, recent) && previousAttempts > encouragementAfter {
		return session.ApproachEncouragement
	}
	if HasMisconception(recent) {
		return session.ApproachCorrection
	}
	if young && previousAttempts == 0 {
		return session.ApproachExplanation
	}

	switch need {
	case session.NeedClarification:
		if previousAttempts == 0 {
			return ageDefault(young)
		}
		return session.ApproachExplanation
	case session.NeedStepByStepHelp, session.NeedPractice:
		return session.ApproachProblemSolving
	case session.NeedConceptExplanation:
		return session.ApproachExplanation
	}
	return ageDefault(young)
}

// IsStruggling reports whether at least two of the last three entries were
// unsuccessful or the concept has been attempted three or more times.
func IsStruggling(previousAttempts int, recent []session.ConversationEntry) bool {
	if previousAttempts >= strugglingAttempts {
		return true
	}
	start := max(len(recent)-strugglingWindow, 0)
	failures := 0
	for _, e := range recent[start:] {
		if !e.Success {
			failures++
		}
	}
	return failures >= strugglingFailures
}

// HasMisconception reports whether any user entry in recent signals a
// misconception.
func HasMisconception(recent []session.ConversationEntry) bool {
	for _, e := range recent {
		if e.Role != session.RoleUser {
			continue
		}
		content := strings.ToLower(e.Content)
		for _, p := range misconceptionPhrases {
			if strings.Contains(content, p) {
				return true
			}
		}
	}
	return false
}

func ageDefault(young bool) session.Approach {
	if young {
		return session.ApproachExplanation
	}
	return session.ApproachSocratic
}
