package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type sessionRepo struct {
	db *sql.DB
}

var messageColumns = []string{
	"id", "session_id", "position", "content", "is_user",
	"concept", "approach", "status", "elapsed_ms", "created_at_ms",
}

var sessionColumns = []string{
	"id", "subject_id", "session_type", "student_id", "grade_level",
	"current_topic", "last_user_question", "attempt_counts", "concept_mastery",
	"started_at_ms", "updated_at_ms",
}

func (r *sessionRepo) UpsertSession(ctx context.Context, rec SessionRecord) error {
	attempts, err := json.Marshal(nonNilInts(rec.AttemptCounts))
	if err != nil {
		return fmt.Errorf("marshal attempt counts: %w", err)
	}
	mastery, err := json.Marshal(nonNilFloats(rec.ConceptMastery))
	if err != nil {
		return fmt.Errorf("marshal concept mastery: %w", err)
	}

	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	query, args := sqlite().Insert("sessions").
		Columns(sessionColumns...).
		Values(
			rec.ID, rec.SubjectID, rec.SessionType, rec.StudentID, rec.GradeLevel,
			rec.CurrentTopic, rec.LastUserQuestion, string(attempts), string(mastery),
			rec.StartedAt.UnixMilli(), updated.UnixMilli(),
		).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session %s: %w", rec.ID, err)
	}
	return nil
}

func (r *sessionRepo) AppendMessage(ctx context.Context, rec MessageRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query, args := sqlite().Insert("messages").
		Columns(messageColumns...).
		Values(
			rec.ID, rec.SessionID, rec.Position, rec.Content, rec.IsUser,
			rec.Concept, rec.Approach, rec.Status, rec.Elapsed.Milliseconds(), created.UnixMilli(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append message %s: %w", rec.ID, err)
	}
	return nil
}

func (r *sessionRepo) UpdateMessage(ctx context.Context, rec MessageRecord) error {
	query, args := sqlite().Update("messages").
		Set("content", rec.Content).
		Set("approach", rec.Approach).
		Set("status", rec.Status).
		Set("elapsed_ms", rec.Elapsed.Milliseconds()).
		Where(entsql.EQ("id", rec.ID)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update message %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message %s: %w", rec.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update message %s: %w", rec.ID, ErrNotFound)
	}
	return nil
}

func (r *sessionRepo) Messages(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	query, args := sqlite().Select(messageColumns...).
		From(entsql.Table("messages")).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("position").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var (
			m                  MessageRecord
			elapsed, createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Position, &m.Content, &m.IsUser,
			&m.Concept, &m.Approach, &m.Status, &elapsed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Elapsed = time.Duration(elapsed) * time.Millisecond
		m.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *sessionRepo) RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	sel := sqlite().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		OrderBy(entsql.Desc("started_at_ms"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			s                  SessionRecord
			attempts, mastery  string
			startedAt, updated int64
		)
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.SessionType, &s.StudentID, &s.GradeLevel,
			&s.CurrentTopic, &s.LastUserQuestion, &attempts, &mastery, &startedAt, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(attempts), &s.AttemptCounts); err != nil {
			return nil, fmt.Errorf("unmarshal attempt counts for %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(mastery), &s.ConceptMastery); err != nil {
			return nil, fmt.Errorf("unmarshal concept mastery for %s: %w", s.ID, err)
		}
		s.StartedAt = time.UnixMilli(startedAt)
		s.UpdatedAt = time.UnixMilli(updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) DeleteAll(ctx context.Context) error {
	for _, table := range []string{"messages", "sessions"} {
		query, args := sqlite().Delete(table).Query()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func nonNilInts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
