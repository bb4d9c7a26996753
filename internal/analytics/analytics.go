// Package analytics records tutoring interactions on a best-effort basis.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/store"
)

// Type classifies an interaction.
type Type string

const (
	TypeQuestion     Type = "question"
	TypeFollowUp     Type = "follow_up"
	TypeContinuation Type = "continuation"
	TypeTopicChange  Type = "topic_change"
	TypeFailed       Type = "failed"
)

// Interaction is one completed (or failed) tutoring turn.
type Interaction struct {
	SessionID string
	StudentID string
	Subject   string
	Topic     string
	Concept   string
	Type      Type
	Approach  string
	Duration  time.Duration
	Quality   float64
}

// Sink receives interactions. RecordInteraction must not block.
type Sink interface {
	RecordInteraction(in Interaction)
}

// Nop discards interactions.
type Nop struct{}

func (Nop) RecordInteraction(Interaction) {}

// StoreSink writes interactions to the event store from a background
// worker. Interactions are dropped when the queue is full.
type StoreSink struct {
	repo    store.EventRepo
	logger  *zap.Logger
	pending chan Interaction
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewStoreSink starts a sink with a queue of the given size.
func NewStoreSink(repo store.EventRepo, queueSize int, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	s := &StoreSink{
		repo:    repo,
		logger:  logger,
		pending: make(chan Interaction, queueSize),
		done:    make(chan struct{}),
	}
	go s.processLoop()
	return s
}

func (s *StoreSink) RecordInteraction(in Interaction) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.pending <- in:
	default:
		s.logger.Debug("analytics queue full, dropping interaction",
			zap.String("session_id", in.SessionID))
	}
}

func (s *StoreSink) processLoop() {
	defer close(s.done)
	for in := range s.pending {
		err := s.repo.AppendInteraction(context.Background(), store.InteractionData{
			SessionID:       in.SessionID,
			StudentID:       in.StudentID,
			Subject:         in.Subject,
			Topic:           in.Topic,
			Concept:         in.Concept,
			InteractionType: string(in.Type),
			Approach:        in.Approach,
			DurationMs:      in.Duration.Milliseconds(),
			Quality:         in.Quality,
		})
		if err != nil {
			s.logger.Debug("record interaction", zap.Error(err))
		}
	}
}

// Close flushes queued interactions and stops the worker.
func (s *StoreSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.pending)
	s.mu.Unlock()
	<-s.done
}

// Signals describe how a turn went.
type Signals struct {
	Failed    bool
	Repaired  bool
	Retries   int
	Struggled bool
}

// Quality scores a turn in [0, 1]. Repaired output, retries and student
// struggle lower the score; a failed turn scores zero.
func Quality(s Signals) float64 {
	if s.Failed {
		return 0
	}
	q := 1.0
	if s.Repaired {
		q -= 0.3
	}
	q -= 0.15 * float64(s.Retries)
	if s.Struggled {
		q -= 0.2
	}
	return min(max(q, 0), 1)
}
