package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// SessionRecord is the persisted form of a tutoring session.
type SessionRecord struct {
	ID               string
	SubjectID        string
	SessionType      string
	StudentID        string
	GradeLevel       int
	CurrentTopic     string
	LastUserQuestion string
	AttemptCounts    map[string]int
	ConceptMastery   map[string]float64
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// MessageRecord is the persisted form of one conversation message.
type MessageRecord struct {
	ID        string
	SessionID string
	Position  int
	Content   string
	IsUser    bool
	Concept   string
	Approach  string
	Status    string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// SessionRepo persists sessions and their messages.
type SessionRepo interface {
	// UpsertSession inserts or replaces the session row.
	UpsertSession(ctx context.Context, rec SessionRecord) error

	// AppendMessage stores a new message at the end of its session.
	AppendMessage(ctx context.Context, rec MessageRecord) error

	// UpdateMessage rewrites content, approach, status and elapsed time of
	// an existing message. Returns ErrNotFound if the message is unknown.
	UpdateMessage(ctx context.Context, rec MessageRecord) error

	// Messages returns a session's messages in position order.
	Messages(ctx context.Context, sessionID string) ([]MessageRecord, error)

	// RecentSessions returns the most recently started sessions, newest first.
	RecentSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	// DeleteAll removes every session and message.
	DeleteAll(ctx context.Context) error
}

// GenerationEventData captures the data for a single generation call.
type GenerationEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// GenerationEvent is a stored generation call.
type GenerationEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	GenerationEventData
}

// InteractionData captures one tutoring interaction for analytics.
type InteractionData struct {
	SessionID       string
	StudentID       string
	Subject         string
	Topic           string
	Concept         string
	InteractionType string
	Approach        string
	DurationMs      int64
	Quality         float64
}

// Interaction is a stored analytics interaction.
type Interaction struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	InteractionData
}

// UsageSummary aggregates generation events by a grouping key.
type UsageSummary struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendGenerationEvent records a generation call event.
	AppendGenerationEvent(ctx context.Context, data GenerationEventData) error

	// AppendInteraction records an analytics interaction.
	AppendInteraction(ctx context.Context, data InteractionData) error

	// QueryGenerationEvents returns generation events, newest first.
	QueryGenerationEvents(ctx context.Context, opts QueryOpts) ([]GenerationEvent, error)

	// GetGenerationEvent returns a single event by ID.
	GetGenerationEvent(ctx context.Context, id int) (*GenerationEvent, error)

	// QueryInteractions returns interactions for a subject, newest first.
	// An empty subject matches all subjects.
	QueryInteractions(ctx context.Context, subject string, opts QueryOpts) ([]Interaction, error)

	// UsageByPurpose aggregates generation events per purpose.
	UsageByPurpose(ctx context.Context) ([]UsageSummary, error)

	// UsageByModel aggregates generation events per model.
	UsageByModel(ctx context.Context) ([]UsageSummary, error)
}
