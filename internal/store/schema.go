package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "subject_id", Type: field.TypeString},
		{Name: "session_type", Type: field.TypeString, Default: ""},
		{Name: "student_id", Type: field.TypeString, Default: ""},
		{Name: "grade_level", Type: field.TypeInt},
		{Name: "current_topic", Type: field.TypeString, Default: ""},
		{Name: "last_user_question", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "attempt_counts", Type: field.TypeString, Size: 2147483647, Default: "{}"},
		{Name: "concept_mastery", Type: field.TypeString, Size: 2147483647, Default: "{}"},
		{Name: "started_at_ms", Type: field.TypeInt64},
		{Name: "updated_at_ms", Type: field.TypeInt64},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_started_at", Columns: []*schema.Column{SessionsColumns[9]}},
		},
	}

	// MessagesColumns holds the columns for the "messages" table.
	MessagesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "session_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "is_user", Type: field.TypeBool},
		{Name: "concept", Type: field.TypeString, Default: ""},
		{Name: "approach", Type: field.TypeString, Default: ""},
		{Name: "status", Type: field.TypeString},
		{Name: "elapsed_ms", Type: field.TypeInt64, Default: 0},
		{Name: "created_at_ms", Type: field.TypeInt64},
	}
	// MessagesTable holds the schema information for the "messages" table.
	MessagesTable = &schema.Table{
		Name:       "messages",
		Columns:    MessagesColumns,
		PrimaryKey: []*schema.Column{MessagesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "message_session_position", Columns: []*schema.Column{MessagesColumns[1], MessagesColumns[2]}},
		},
	}

	// InteractionsColumns holds the columns for the "interactions" table.
	InteractionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "session_id", Type: field.TypeString, Default: ""},
		{Name: "student_id", Type: field.TypeString, Default: ""},
		{Name: "subject", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString, Default: ""},
		{Name: "concept", Type: field.TypeString, Default: ""},
		{Name: "interaction_type", Type: field.TypeString},
		{Name: "approach", Type: field.TypeString, Default: ""},
		{Name: "duration_ms", Type: field.TypeInt64, Default: 0},
		{Name: "quality", Type: field.TypeFloat64, Default: 0},
		{Name: "created_at_ms", Type: field.TypeInt64},
	}
	// InteractionsTable holds the schema information for the "interactions" table.
	InteractionsTable = &schema.Table{
		Name:       "interactions",
		Columns:    InteractionsColumns,
		PrimaryKey: []*schema.Column{InteractionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "interaction_subject", Columns: []*schema.Column{InteractionsColumns[4]}},
		},
	}

	// GenerationEventsColumns holds the columns for the "generation_events" table.
	GenerationEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "created_at_ms", Type: field.TypeInt64},
	}
	// GenerationEventsTable holds the schema information for the "generation_events" table.
	GenerationEventsTable = &schema.Table{
		Name:       "generation_events",
		Columns:    GenerationEventsColumns,
		PrimaryKey: []*schema.Column{GenerationEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "generation_event_purpose", Columns: []*schema.Column{GenerationEventsColumns[4]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		SessionsTable,
		MessagesTable,
		InteractionsTable,
		GenerationEventsTable,
	}
)
