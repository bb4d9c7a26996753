package llm

import (
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the provider answered without usable text.
type ErrInvalidResponse struct {
	Err error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid generation response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation provider unavailable: %v", e.Err)
	}
	return "generation provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrGenerationFailed is returned once every retry attempt has failed.
type ErrGenerationFailed struct {
	Attempts int
	Err      error
}

func (e *ErrGenerationFailed) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ErrGenerationFailed) Unwrap() error { return e.Err }

// ErrAttemptTimeout indicates a single attempt ran past its own deadline
// while the caller was still waiting.
type ErrAttemptTimeout struct {
	Timeout time.Duration
	Err     error
}

func (e *ErrAttemptTimeout) Error() string {
	return fmt.Sprintf("generation attempt timed out after %s: %v", e.Timeout, e.Err)
}

func (e *ErrAttemptTimeout) Unwrap() error { return e.Err }
