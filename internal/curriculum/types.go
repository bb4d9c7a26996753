// Package curriculum loads subject topics and serves grade-appropriate
// topic suggestions and reference material.
package curriculum

import (
	"context"
	"errors"
)

// ErrUnknownSubject is returned for a subject the curriculum doesn't cover.
var ErrUnknownSubject = errors.New("curriculum: unknown subject")

// GradeRange is an inclusive range of grade levels.
type GradeRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether grade falls in the range.
func (r GradeRange) Contains(grade int) bool {
	return grade >= r.Min && grade <= r.Max
}

// Topic is one curriculum entry.
type Topic struct {
	Title      string     `yaml:"title" json:"title"`
	GradeRange GradeRange `yaml:"grades" json:"grades"`
	Summary    string     `yaml:"summary" json:"summary"`
}

// Subject groups the topics of one subject.
type Subject struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Curriculum is the parsed curriculum document.
type Curriculum struct {
	Subjects []Subject `yaml:"subjects" json:"subjects"`
}

// Provider returns the topics of a subject. Implementations may return
// topics outside the requested grade; callers filter.
type Provider interface {
	TopicsFor(ctx context.Context, subjectID string, grade int) ([]Topic, error)
}
