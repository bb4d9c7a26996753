package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 10 * time.Millisecond

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       testDelay,
	}
}

// recordingSleep captures requested waits without sleeping.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "Hello."})
	sl := &recordingSleep{}
	p := WithRetry(mock, retryConfig(), WithSleep(sl.sleep))

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", resp.Content)
	assert.Equal(t, 1, mock.CallCount())
	assert.Empty(t, sl.waits)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: "ok"},
	)
	sl := &recordingSleep{}
	p := WithRetry(mock, retryConfig(), WithSleep(sl.sleep))

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, []time.Duration{testDelay}, sl.waits)
}

func TestRetry_ExhaustionIsBoundedWithLinearBackoff(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: "never reached"},
	)
	sl := &recordingSleep{}
	p := WithRetry(mock, retryConfig(), WithSleep(sl.sleep))

	_, err := p.Generate(context.Background(), Request{})
	require.Error(t, err)

	var failed *ErrGenerationFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)

	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail, "last error should stay reachable")

	assert.Equal(t, 3, mock.CallCount(), "a fourth attempt must never be made")
	assert.Equal(t, []time.Duration{testDelay, 2 * testDelay}, sl.waits)
}

func TestRetry_ObserverSeesEachRetry(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: errors.New("boom")},
		MockResponse{Err: errors.New("boom")},
		MockResponse{Content: "done"},
	)
	sl := &recordingSleep{}
	p := WithRetry(mock, retryConfig(), WithSleep(sl.sleep))

	var seen []int
	ctx := WithRetryObserver(context.Background(), func(attempt, max int, err error) {
		assert.Equal(t, 3, max)
		assert.Error(t, err)
		seen = append(seen, attempt)
	})

	_, err := p.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, seen)
}

func TestRetry_ContextCancellationStopsRetrying(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: "ok"},
	)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_ContextErrorNotRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: context.DeadlineExceeded},
		MockResponse{Content: "ok"},
	)
	p := WithRetry(mock, retryConfig(), WithSleep((&recordingSleep{}).sleep))

	_, err := p.Generate(context.Background(), Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

// stallingProvider blocks its first call until the call's context ends and
// answers every later call.
type stallingProvider struct {
	calls atomic.Int32
}

func (p *stallingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	if p.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &Response{Content: "recovered"}, nil
}

func (p *stallingProvider) ModelID() string { return "stalling" }

func TestRetry_TimedOutAttemptIsRetried(t *testing.T) {
	inner := &stallingProvider{}
	cfg := retryConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	sl := &recordingSleep{}
	p := WithRetry(inner, cfg, WithSleep(sl.sleep))

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, []time.Duration{testDelay}, sl.waits)
}

func TestRetry_EveryAttemptTimingOutFails(t *testing.T) {
	stall := func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	inner := providerFunc(stall)
	cfg := retryConfig()
	cfg.AttemptTimeout = 10 * time.Millisecond
	p := WithRetry(inner, cfg, WithSleep((&recordingSleep{}).sleep))

	_, err := p.Generate(context.Background(), Request{})
	var failed *ErrGenerationFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 3, failed.Attempts)

	var timedOut *ErrAttemptTimeout
	assert.ErrorAs(t, err, &timedOut)
}

func TestRetry_CallerDeadlineIsNotAnAttemptTimeout(t *testing.T) {
	inner := &stallingProvider{}
	cfg := retryConfig()
	cfg.AttemptTimeout = time.Hour
	p := WithRetry(inner, cfg, WithSleep((&recordingSleep{}).sleep))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	var failed *ErrGenerationFailed
	assert.False(t, errors.As(err, &failed))
	assert.Equal(t, int32(1), inner.calls.Load())
}

type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func (providerFunc) ModelID() string { return "func" }

func TestRetry_RateLimitRespectsLongerRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: time.Second, Err: errors.New("429")}},
		MockResponse{Content: "ok"},
	)
	sl := &recordingSleep{}
	p := WithRetry(mock, retryConfig(), WithSleep(sl.sleep))

	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, sl.waits)
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	p := WithRetry(NewMockProvider(), retryConfig())
	if p.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", p.ModelID())
	}
}
