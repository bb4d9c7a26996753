package tutor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/analytics"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/prompt"
	"github.com/abhisek/tutorly/internal/repair"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/strategy"
	"github.com/abhisek/tutorly/internal/topic"
)

const (
	purposeTurn         = "tutor"
	purposeContinuation = "continuation"
)

// runTurn processes one student input. Session changes are committed only
// if the turn succeeds and its epoch is still current.
func (c *Controller) runTurn(ctx context.Context, epoch uint64, text string) (*session.Message, error) {
	text = strings.TrimSpace(text)
	start := time.Now()

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return nil, ErrTurnDiscarded
	}
	if err := c.readyLocked(); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return nil, err
	}
	if IsContinuationRequest(text) && c.sess.LastAssistantIndex() >= 0 {
		c.mu.Unlock()
		return c.continueTurn(ctx, epoch, start)
	}

	sess := c.sess
	student := sess.Student
	cls := topic.Classify(text, sess.CurrentTopic)
	need := strategy.ClassifyNeed(text)
	concept := cls.Topic

	// A topic change starts from a clean slate.
	var history []session.ConversationEntry
	prevAttempts := 0
	if !cls.IsTopicChange {
		history = sess.Recent(c.cfg.HistoryWindow - 1)
		prevAttempts = sess.Attempts(concept)
	}
	current := session.ConversationEntry{
		Role:    session.RoleUser,
		Content: text,
		Concept: concept,
		Success: strategy.Succeeded(need.Need),
	}
	window := append(slices.Clone(history), current)
	approach := strategy.Select(need.Need, prevAttempts, window, student.GradeLevel)
	struggled := strategy.IsStruggling(prevAttempts, window)

	userMsg := session.NewMessage(text, true, start)
	userMsg.Concept = concept
	pos := sess.AppendMessage(userMsg)
	c.persist.appendMessage(sess.ID, pos, userMsg)

	in := prompt.Input{
		Approach:         approach,
		Student:          student,
		History:          history,
		Topic:            concept,
		IsFollowUp:       cls.IsFollowUp,
		OriginalQuestion: sess.LastUserQuestion,
		CurrentInput:     text,
	}
	subjectID := sess.SubjectID
	c.vs.loading = true
	c.vs.err = ""
	c.vs.warning = ""
	c.vs.status = ""
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("turn started",
		zap.String("session_id", sess.ID),
		zap.String("topic", concept),
		zap.Bool("follow_up", cls.IsFollowUp),
		zap.Bool("topic_change", cls.IsTopicChange),
		zap.Stringer("need", need.Need),
		zap.Stringer("approach", approach))

	in.RetrievedContext = c.retrieve(ctx, subjectID, student.GradeLevel, concept)
	req := llm.UserPrompt(prompt.SystemPrompt, prompt.Assemble(in),
		prompt.BandFor(student.GradeLevel).MaxTokens, c.cfg.Temperature)
	resp, retries, err := c.generate(ctx, epoch, purposeTurn, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.sess != sess {
		return nil, ErrTurnDiscarded
	}
	c.vs.loading = false
	c.vs.status = ""

	ui := sess.MessageIndex(userMsg.ID)
	interaction := analytics.Interaction{
		SessionID: sess.ID,
		StudentID: student.ID,
		Subject:   subjectID,
		Topic:     concept,
		Concept:   concept,
		Approach:  approach.String(),
		Duration:  time.Since(start),
	}

	if err != nil {
		sess.Messages[ui].Status = session.StatusFailed
		c.persist.updateMessage(sess.ID, ui, sess.Messages[ui])
		c.vs.err = userMessage(err)
		c.publishLocked()

		c.logger.Warn("turn failed", zap.String("session_id", sess.ID), zap.Error(err))
		interaction.Type = analytics.TypeFailed
		interaction.Quality = analytics.Quality(analytics.Signals{Failed: true})
		c.analytics.RecordInteraction(interaction)
		return nil, err
	}

	switch {
	case cls.IsTopicChange:
		sess.ChangeTopic(cls.Topic)
	case sess.CurrentTopic == "":
		sess.CurrentTopic = cls.Topic
	}
	if !cls.IsFollowUp {
		sess.LastUserQuestion = text
	}

	sess.Messages[ui].Status = session.StatusSent
	c.persist.updateMessage(sess.ID, ui, sess.Messages[ui])
	sess.Record(current)

	raw := strings.TrimSpace(resp.Content)
	reply := repair.Repair(raw, student.GradeLevel)
	msg := session.NewMessage(reply, false, time.Now())
	msg.Concept = concept
	msg.Approach = approach
	msg.Elapsed = time.Since(start)
	ai := sess.AppendMessage(msg)
	c.persist.appendMessage(sess.ID, ai, msg)
	sess.Record(session.ConversationEntry{
		Role:    session.RoleAssistant,
		Content: reply,
		Concept: concept,
		Success: true,
	})

	if concept != "" {
		sess.IncrementAttempts(concept)
	}
	sess.NudgeMastery(concept, struggled)
	c.persist.upsertSession(sess)

	c.vs.err = ""
	c.vs.approach = approach
	c.publishLocked()

	switch {
	case cls.IsTopicChange:
		interaction.Type = analytics.TypeTopicChange
	case cls.IsFollowUp:
		interaction.Type = analytics.TypeFollowUp
	default:
		interaction.Type = analytics.TypeQuestion
	}
	interaction.Quality = analytics.Quality(analytics.Signals{
		Repaired:  reply != raw,
		Retries:   retries,
		Struggled: struggled,
	})
	c.analytics.RecordInteraction(interaction)

	out := msg
	return &out, nil
}

// continueTurn extends the newest assistant reply in place.
func (c *Controller) continueTurn(ctx context.Context, epoch uint64, start time.Time) (*session.Message, error) {
	c.mu.Lock()
	if epoch != c.epoch || c.sess == nil {
		c.mu.Unlock()
		return nil, ErrTurnDiscarded
	}
	sess := c.sess
	prior := sess.Messages[sess.LastAssistantIndex()]
	approach := prior.Approach
	if approach == session.ApproachNone {
		approach = session.ApproachExplanation
	}
	grade := sess.Student.GradeLevel
	in := prompt.ContinuationInput{
		Student:  sess.Student,
		Topic:    sess.CurrentTopic,
		Approach: approach,
		Prior:    prior.Content,
	}
	c.vs.loading = true
	c.vs.err = ""
	c.vs.warning = ""
	c.vs.status = ""
	c.publishLocked()
	c.mu.Unlock()

	req := llm.UserPrompt(prompt.SystemPrompt, prompt.AssembleContinuation(in),
		prompt.BandFor(grade).MaxTokens, c.cfg.Temperature)
	resp, retries, err := c.generate(ctx, epoch, purposeContinuation, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := -1
	if epoch == c.epoch && c.sess == sess {
		idx = sess.MessageIndex(prior.ID)
	}
	if idx < 0 {
		return nil, ErrTurnDiscarded
	}
	c.vs.loading = false
	c.vs.status = ""

	interaction := analytics.Interaction{
		SessionID: sess.ID,
		StudentID: sess.Student.ID,
		Subject:   sess.SubjectID,
		Topic:     sess.CurrentTopic,
		Concept:   prior.Concept,
		Approach:  approach.String(),
		Duration:  time.Since(start),
	}

	if err != nil {
		c.vs.err = userMessage(err)
		c.publishLocked()

		c.logger.Warn("continuation failed", zap.String("session_id", sess.ID), zap.Error(err))
		interaction.Type = analytics.TypeFailed
		c.analytics.RecordInteraction(interaction)
		return nil, err
	}

	raw := strings.TrimSpace(resp.Content)
	addition := repair.Repair(raw, grade)
	m := &sess.Messages[idx]
	m.Content = mergeContinuation(m.Content, addition)
	m.Approach = approach
	m.Elapsed += time.Since(start)
	c.persist.updateMessage(sess.ID, idx, *m)

	c.vs.approach = approach
	c.publishLocked()

	interaction.Type = analytics.TypeContinuation
	interaction.Quality = analytics.Quality(analytics.Signals{
		Repaired: addition != raw,
		Retries:  retries,
	})
	c.analytics.RecordInteraction(interaction)

	out := *m
	return &out, nil
}

// generate runs one provider call behind the single-flight gate. Retry
// notifications from the provider chain surface as the view status.
func (c *Controller) generate(ctx context.Context, epoch uint64, purpose string, req llm.Request) (*llm.Response, int, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer c.gate.Release(1)

	if c.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GenerationTimeout)
		defer cancel()
	}

	retries := 0
	ctx = llm.WithPurpose(ctx, purpose)
	ctx = llm.WithRetryObserver(ctx, func(attempt, maxAttempts int, err error) {
		retries++
		c.logger.Info("retrying generation",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))
		c.setStatus(epoch, fmt.Sprintf("retrying (%d/%d)", attempt, maxAttempts))
	})

	resp, err := c.provider.Generate(ctx, req)
	return resp, retries, err
}

// retrieve fetches reference material. Failures only cost context.
func (c *Controller) retrieve(ctx context.Context, subjectID string, grade int, turnTopic string) string {
	if c.retriever == nil || turnTopic == "" {
		return ""
	}
	text, err := c.retriever.Retrieve(ctx, subjectID, grade, turnTopic)
	if err != nil {
		c.logger.Debug("retrieve context", zap.String("topic", turnTopic), zap.Error(err))
		return ""
	}
	return text
}
