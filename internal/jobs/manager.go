// Package jobs tracks cancellable background jobs by kind.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind names a class of job. At most one job of each kind runs at a time.
type Kind int

const (
	KindRecording Kind = iota
	KindTranscription
	KindDebounce
)

// Kinds lists every job kind.
var Kinds = []Kind{KindRecording, KindTranscription, KindDebounce}

func (k Kind) String() string {
	switch k {
	case KindRecording:
		return "recording"
	case KindTranscription:
		return "transcription"
	case KindDebounce:
		return "debounce"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Func is the body of a job. It must return promptly once ctx is done.
type Func func(ctx context.Context) error

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, replaces and cancels jobs. Safe for concurrent use.
type Manager struct {
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[Kind]*job
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger, jobs: make(map[Kind]*job)}
}

// Start runs fn as the job of the given kind. A running job of the same kind
// is cancelled and awaited before fn starts.
func (m *Manager) Start(parent context.Context, kind Kind, fn Func) {
	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	prev := m.jobs[kind]
	m.jobs[kind] = j
	m.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	go func() {
		defer close(j.done)
		defer cancel()

		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("job failed", zap.Stringer("kind", kind), zap.Error(err))
		}

		m.mu.Lock()
		if m.jobs[kind] == j {
			delete(m.jobs, kind)
		}
		m.mu.Unlock()
	}()
}

// Running reports whether a job of the given kind is active.
func (m *Manager) Running(kind Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[kind]
	return ok
}

// Cancel cancels the job of the given kind and waits for it to return.
func (m *Manager) Cancel(kind Kind) {
	m.mu.Lock()
	j := m.jobs[kind]
	delete(m.jobs, kind)
	m.mu.Unlock()

	if j != nil {
		j.cancel()
		<-j.done
	}
}

// CancelAll cancels every job and waits for all of them to return.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	running := m.jobs
	m.jobs = make(map[Kind]*job)
	m.mu.Unlock()

	for _, j := range running {
		j.cancel()
	}
	for _, j := range running {
		<-j.done
	}
}
