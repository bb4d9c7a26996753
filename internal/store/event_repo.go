package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var generationEventColumns = []string{
	"id", "sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body", "created_at_ms",
}

var interactionColumns = []string{
	"id", "sequence", "session_id", "student_id", "subject", "topic", "concept",
	"interaction_type", "approach", "duration_ms", "quality", "created_at_ms",
}

func (r *eventRepo) AppendGenerationEvent(ctx context.Context, data GenerationEventData) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := sqlite().Insert("generation_events").
		Columns(generationEventColumns[1:]...).
		Values(
			seq, data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody,
			time.Now().UnixMilli(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append generation event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendInteraction(ctx context.Context, data InteractionData) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := sqlite().Insert("interactions").
		Columns(interactionColumns[1:]...).
		Values(
			seq, data.SessionID, data.StudentID, data.Subject, data.Topic, data.Concept,
			data.InteractionType, data.Approach, data.DurationMs, data.Quality,
			time.Now().UnixMilli(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// applyOpts narrows a selector by sequence, time range and limit.
func applyOpts(sel *entsql.Selector, opts QueryOpts) *entsql.Selector {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("created_at_ms", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("created_at_ms", opts.To.UnixMilli()))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return sel
}

func (r *eventRepo) QueryGenerationEvents(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error) {
	sel := sqlite().Select(generationEventColumns...).From(entsql.Table("generation_events"))
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	query, args := applyOpts(sel, opts).Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation events: %w", err)
	}
	defer rows.Close()

	var out []GenerationEvent
	for rows.Next() {
		ev, err := scanGenerationEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetGenerationEvent(ctx context.Context, id int) (*GenerationEvent, error) {
	query, args := sqlite().Select(generationEventColumns...).
		From(entsql.Table("generation_events")).
		Where(entsql.EQ("id", id)).
		Query()
	ev, err := scanGenerationEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generation event %d: %w", id, ErrNotFound)
	}
	return ev, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGenerationEvent(row rowScanner) (*GenerationEvent, error) {
	var (
		ev        GenerationEvent
		createdAt int64
	)
	err := row.Scan(&ev.ID, &ev.Sequence, &ev.Provider, &ev.Model, &ev.Purpose,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success,
		&ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan generation event: %w", err)
	}
	ev.Timestamp = time.UnixMilli(createdAt)
	return &ev, nil
}

func (r *eventRepo) QueryInteractions(ctx context.Context, subject string, opts QueryOpts) ([]Interaction, error) {
	sel := sqlite().Select(interactionColumns...).From(entsql.Table("interactions"))
	if subject != "" {
		sel.Where(entsql.EQ("subject", subject))
	}
	query, args := applyOpts(sel, opts).Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in        Interaction
			createdAt int64
		)
		if err := rows.Scan(&in.ID, &in.Sequence, &in.SessionID, &in.StudentID, &in.Subject,
			&in.Topic, &in.Concept, &in.InteractionType, &in.Approach, &in.DurationMs,
			&in.Quality, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Timestamp = time.UnixMilli(createdAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]UsageSummary, error) {
	return r.usageBy(ctx, "purpose")
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]UsageSummary, error) {
	return r.usageBy(ctx, "model")
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]UsageSummary, error) {
	query, args := sqlite().Select(
		column,
		"COUNT(*)",
		"SUM(CASE WHEN success THEN 0 ELSE 1 END)",
		"COALESCE(SUM(input_tokens), 0)",
		"COALESCE(SUM(output_tokens), 0)",
		"COALESCE(CAST(AVG(latency_ms) AS INTEGER), 0)",
	).
		From(entsql.Table("generation_events")).
		GroupBy(column).
		OrderBy(column).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("usage by %s: %w", column, err)
	}
	defer rows.Close()

	var out []UsageSummary
	for rows.Next() {
		var u UsageSummary
		if err := rows.Scan(&u.Key, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
