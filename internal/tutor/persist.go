package tutor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
)

const persistTimeout = 5 * time.Second

type persistOp struct {
	name string
	fn   func(ctx context.Context, repo store.SessionRepo) error
}

// persister applies storage writes in order on a single goroutine.
// Failures are logged and never reach the turn pipeline. A nil persister
// discards writes.
type persister struct {
	repo   store.SessionRepo
	logger *zap.Logger
	ops    chan persistOp
	done   chan struct{}
}

func newPersister(repo store.SessionRepo, size int, logger *zap.Logger) *persister {
	if repo == nil {
		return nil
	}
	p := &persister{
		repo:   repo,
		logger: logger,
		ops:    make(chan persistOp, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(op persistOp) {
	if p == nil {
		return
	}
	select {
	case p.ops <- op:
	default:
		p.logger.Warn("persistence queue full, dropping write", zap.String("op", op.name))
	}
}

func (p *persister) run() {
	defer close(p.done)
	for op := range p.ops {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := op.fn(ctx, p.repo); err != nil {
			p.logger.Warn("persistence failed", zap.String("op", op.name), zap.Error(err))
		}
		cancel()
	}
}

// close flushes pending writes and stops the worker.
func (p *persister) close() {
	if p == nil {
		return
	}
	close(p.ops)
	<-p.done
}

func (p *persister) upsertSession(s *session.Session) {
	if p == nil {
		return
	}
	rec := sessionRecord(s)
	p.enqueue(persistOp{name: "upsert_session", fn: func(ctx context.Context, repo store.SessionRepo) error {
		return repo.UpsertSession(ctx, rec)
	}})
}

func (p *persister) appendMessage(sessionID string, pos int, m session.Message) {
	if p == nil {
		return
	}
	rec := messageRecord(sessionID, pos, m)
	p.enqueue(persistOp{name: "append_message", fn: func(ctx context.Context, repo store.SessionRepo) error {
		return repo.AppendMessage(ctx, rec)
	}})
}

func (p *persister) updateMessage(sessionID string, pos int, m session.Message) {
	if p == nil {
		return
	}
	rec := messageRecord(sessionID, pos, m)
	p.enqueue(persistOp{name: "update_message", fn: func(ctx context.Context, repo store.SessionRepo) error {
		return repo.UpdateMessage(ctx, rec)
	}})
}

func sessionRecord(s *session.Session) store.SessionRecord {
	c := s.Clone()
	return store.SessionRecord{
		ID:               c.ID,
		SubjectID:        c.SubjectID,
		SessionType:      c.SessionType,
		StudentID:        c.Student.ID,
		GradeLevel:       c.Student.GradeLevel,
		CurrentTopic:     c.CurrentTopic,
		LastUserQuestion: c.LastUserQuestion,
		AttemptCounts:    c.AttemptCounts,
		ConceptMastery:   c.ConceptMastery,
		StartedAt:        c.StartedAt,
		UpdatedAt:        time.Now(),
	}
}

func messageRecord(sessionID string, pos int, m session.Message) store.MessageRecord {
	return store.MessageRecord{
		ID:        m.ID,
		SessionID: sessionID,
		Position:  pos,
		Content:   m.Content,
		IsUser:    m.IsUser,
		Concept:   m.Concept,
		Approach:  m.Approach.String(),
		Status:    m.Status.String(),
		Elapsed:   m.Elapsed,
		CreatedAt: m.Timestamp,
	}
}
