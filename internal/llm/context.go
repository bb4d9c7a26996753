package llm

import "context"

type contextKey string

const (
	purposeKey       contextKey = "llm_purpose"
	retryObserverKey contextKey = "llm_retry_observer"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// RetryObserver is notified before each retry with the upcoming attempt
// number (2-based), the attempt limit and the error that caused the retry.
type RetryObserver func(attempt, maxAttempts int, err error)

// WithRetryObserver attaches a retry observer to the context.
func WithRetryObserver(ctx context.Context, obs RetryObserver) context.Context {
	return context.WithValue(ctx, retryObserverKey, obs)
}

func retryObserverFrom(ctx context.Context) RetryObserver {
	if v, ok := ctx.Value(retryObserverKey).(RetryObserver); ok {
		return v
	}
	return nil
}
