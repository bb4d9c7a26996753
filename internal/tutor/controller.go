// Package tutor runs tutoring sessions: it turns student input into
// teaching turns and keeps the session consistent under cancellation.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/abhisek/tutorly/internal/analytics"
	"github.com/abhisek/tutorly/internal/debounce"
	"github.com/abhisek/tutorly/internal/jobs"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/speech"
	"github.com/abhisek/tutorly/internal/store"
)

// TopicSource supplies topic suggestions, typically a curriculum.TopicCache.
type TopicSource interface {
	GetTopics(ctx context.Context, subjectID string, grade int) ([]string, error)
}

// ContextRetriever supplies reference material for a topic, typically a
// curriculum.Retriever.
type ContextRetriever interface {
	Retrieve(ctx context.Context, subjectID string, grade int, topic string) (string, error)
}

// Deps are the collaborators of a Controller. Only Provider is required.
type Deps struct {
	Provider    llm.Provider
	Topics      TopicSource
	Retriever   ContextRetriever
	Sessions    store.SessionRepo
	Analytics   analytics.Sink
	Transcriber speech.Transcriber
	Logger      *zap.Logger
}

// SessionOptions describe a new session.
type SessionOptions struct {
	SubjectID   string
	SessionType string
	Student     session.Student
}

type turnResult struct {
	msg *session.Message
	err error
}

type turnRequest struct {
	text   string
	epoch  uint64
	result chan turnResult // nil for fire-and-forget input
}

// Controller owns one tutoring session at a time. Turns run one at a time
// in submission order on a dedicated worker.
type Controller struct {
	cfg         Config
	provider    llm.Provider
	topics      TopicSource
	retriever   ContextRetriever
	analytics   analytics.Sink
	transcriber speech.Transcriber
	logger      *zap.Logger

	gate      *semaphore.Weighted
	jobs      *jobs.Manager
	debouncer *debounce.Debouncer
	persist   *persister
	turns     chan turnRequest
	closeCh   chan struct{}
	workerWG  sync.WaitGroup

	mu        sync.Mutex
	sess      *session.Session
	epoch     uint64
	epochCtx  context.Context
	cancelCtx context.CancelFunc
	vs        viewState
	subs      map[int]chan SessionView
	nextSub   int
	recorder  *speech.Recorder
	closed    bool
}

// New creates a controller and starts its turn worker.
func New(cfg Config, deps Deps) (*Controller, error) {
	if deps.Provider == nil {
		return nil, errors.New("tutor: generation provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tutor config: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := deps.Analytics
	if sink == nil {
		sink = analytics.Nop{}
	}

	c := &Controller{
		cfg:         cfg,
		provider:    deps.Provider,
		topics:      deps.Topics,
		retriever:   deps.Retriever,
		analytics:   sink,
		transcriber: deps.Transcriber,
		logger:      logger,
		gate:        semaphore.NewWeighted(1),
		jobs:        jobs.NewManager(logger),
		persist:     newPersister(deps.Sessions, cfg.PersistQueueSize, logger),
		turns:       make(chan turnRequest, cfg.TurnQueueSize),
		closeCh:     make(chan struct{}),
		subs:        make(map[int]chan SessionView),
	}
	c.debouncer = debounce.New(cfg.DebounceWindow, func(ctx context.Context, text string) {
		if err := c.enqueue(ctx, text, nil); err != nil {
			c.logger.Debug("dropping debounced input", zap.Error(err))
		}
	})
	c.epochCtx, c.cancelCtx = context.WithCancel(context.Background())

	c.workerWG.Add(1)
	go c.turnWorker()
	return c, nil
}

// StartSession replaces any current session with a new one. In-flight and
// queued work for the old session is cancelled and discarded.
func (c *Controller) StartSession(ctx context.Context, opts SessionOptions) (SessionView, error) {
	if err := c.resetEpoch(); err != nil {
		return SessionView{}, err
	}

	sess := session.New(strings.ToUpper(opts.SubjectID), opts.SessionType, opts.Student, time.Now())
	if sess.SubjectID != "" && c.topics != nil {
		topics, err := c.topics.GetTopics(ctx, sess.SubjectID, opts.Student.GradeLevel)
		if err != nil {
			c.logger.Warn("load topic suggestions", zap.String("subject", sess.SubjectID), zap.Error(err))
		}
		sess.SuggestedTopics = topics
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return SessionView{}, ErrClosed
	}
	c.sess = sess
	c.vs = viewState{}
	c.persist.upsertSession(sess)
	c.publishLocked()
	view, epochCtx := c.viewLocked(), c.epochCtx
	c.mu.Unlock()

	// The debounce job emits under c.mu, so it is started unlocked.
	c.jobs.Start(epochCtx, jobs.KindDebounce, c.debouncer.Run)

	c.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("subject", sess.SubjectID),
		zap.Int("grade", sess.Student.GradeLevel))
	return view, nil
}

// SubmitInput queues typed or transcribed input. Bursts are debounced so
// only the latest input of a burst becomes a turn.
func (c *Controller) SubmitInput(text string) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if !c.debouncer.Submit(text) {
		c.mu.Lock()
		c.failLocked(ErrQueueFull)
		c.mu.Unlock()
		return ErrQueueFull
	}
	return nil
}

// ProcessTurn runs one turn and waits for its reply. The turn is queued
// behind any pending turns. Cancelling ctx stops waiting but does not
// cancel the turn.
func (c *Controller) ProcessTurn(ctx context.Context, text string) (*session.Message, error) {
	result := make(chan turnResult, 1)
	if err := c.enqueue(context.Background(), text, result); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		return r.msg, r.err
	}
}

// SelectTopic switches to a suggested topic and asks about it.
func (c *Controller) SelectTopic(title string) error {
	title = strings.TrimSpace(title)
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return err
	}
	if !strings.EqualFold(c.sess.CurrentTopic, title) {
		c.sess.ChangeTopic(title)
		c.persist.upsertSession(c.sess)
		c.publishLocked()
	}
	c.mu.Unlock()

	return c.enqueue(context.Background(), "Tell me about "+title, nil)
}

// ClearSubject cancels all work for the current session and resets it
// to an empty session without a subject.
func (c *Controller) ClearSubject() error {
	if err := c.resetEpoch(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var student session.Student
	if c.sess != nil {
		student = c.sess.Student
	}
	c.sess = session.New("", "", student, time.Now())
	c.vs = viewState{}
	c.publishLocked()
	return nil
}

// DismissError clears the error and warning shown in the view.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vs.err = ""
	c.vs.warning = ""
	c.publishLocked()
}

// View returns the current session view.
func (c *Controller) View() SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a channel receiving view updates, starting with the
// current view. Slow subscribers only see the latest view. Call the
// returned function to unsubscribe.
func (c *Controller) Subscribe() (<-chan SessionView, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan SessionView, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.viewLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close cancels all work, flushes pending writes and stops the worker.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.cancelCtx()
	c.mu.Unlock()

	c.jobs.CancelAll()
	close(c.closeCh)
	c.workerWG.Wait()
	c.persist.close()

	c.mu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

// resetEpoch invalidates every queued and in-flight turn and cancels all
// jobs before the session is replaced.
func (c *Controller) resetEpoch() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.epoch++
	c.cancelCtx()
	c.epochCtx, c.cancelCtx = context.WithCancel(context.Background())
	c.recorder = nil
	c.mu.Unlock()

	c.jobs.CancelAll()
	c.debouncer.Drain()
	return nil
}

// enqueue queues a turn for the current epoch. The turn is dropped if
// origin was cancelled by an epoch change.
func (c *Controller) enqueue(origin context.Context, text string, result chan turnResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if origin.Err() != nil {
		return ErrTurnDiscarded
	}
	select {
	case c.turns <- turnRequest{text: text, epoch: c.epoch, result: result}:
		return nil
	default:
		c.failLocked(ErrQueueFull)
		return ErrQueueFull
	}
}

func (c *Controller) turnWorker() {
	defer c.workerWG.Done()
	for {
		select {
		case <-c.closeCh:
			c.drainTurns()
			return
		case req := <-c.turns:
			c.mu.Lock()
			ctx, current := c.epochCtx, req.epoch == c.epoch
			c.mu.Unlock()

			var res turnResult
			if current {
				res.msg, res.err = c.runTurn(ctx, req.epoch, req.text)
			} else {
				res.err = ErrTurnDiscarded
			}
			if req.result != nil {
				req.result <- res
			}
		}
	}
}

func (c *Controller) drainTurns() {
	for {
		select {
		case req := <-c.turns:
			if req.result != nil {
				req.result <- turnResult{err: ErrClosed}
			}
		default:
			return
		}
	}
}

// readyLocked checks that a turn can run.
func (c *Controller) readyLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.sess == nil {
		return ErrNoActiveSession
	}
	if c.sess.SubjectID == "" {
		return ErrNoSubjectSelected
	}
	return nil
}

// failLocked surfaces err in the view.
func (c *Controller) failLocked(err error) {
	if errors.Is(err, ErrClosed) {
		return
	}
	c.vs.err = userMessage(err)
	c.vs.loading = false
	c.vs.status = ""
	c.publishLocked()
}

func (c *Controller) viewLocked() SessionView {
	return buildView(c.sess, c.vs)
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	v := c.viewLocked()
	for _, ch := range c.subs {
		offer(ch, v)
	}
}

// setStatus updates the transient status if epoch is still current.
func (c *Controller) setStatus(epoch uint64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.vs.status = status
	c.publishLocked()
}
