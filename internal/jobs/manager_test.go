package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingJob runs until cancelled and records that it exited.
func blockingJob(started chan<- struct{}, exited *atomic.Int32) Func {
	return func(ctx context.Context) error {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		exited.Add(1)
		return ctx.Err()
	}
}

func TestStartReplacesSameKind(t *testing.T) {
	m := NewManager(nil)
	var exited atomic.Int32

	started := make(chan struct{})
	m.Start(context.Background(), KindRecording, blockingJob(started, &exited))
	<-started

	secondStarted := make(chan struct{})
	m.Start(context.Background(), KindRecording, blockingJob(secondStarted, &exited))

	// The first job must have exited before Start returned.
	assert.Equal(t, int32(1), exited.Load())
	<-secondStarted
	assert.True(t, m.Running(KindRecording))

	m.CancelAll()
	assert.Equal(t, int32(2), exited.Load())
	assert.False(t, m.Running(KindRecording))
}

func TestCancelAwaits(t *testing.T) {
	m := NewManager(nil)
	var exited atomic.Int32
	started := make(chan struct{})

	m.Start(context.Background(), KindTranscription, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		exited.Add(1)
		return nil
	})
	<-started

	m.Cancel(KindTranscription)
	assert.Equal(t, int32(1), exited.Load())
	assert.False(t, m.Running(KindTranscription))

	// Cancelling an idle kind is a no-op.
	m.Cancel(KindDebounce)
}

func TestCancelLeavesOtherKinds(t *testing.T) {
	m := NewManager(nil)
	var exited atomic.Int32
	s1, s2 := make(chan struct{}), make(chan struct{})

	m.Start(context.Background(), KindRecording, blockingJob(s1, &exited))
	m.Start(context.Background(), KindDebounce, blockingJob(s2, &exited))
	<-s1
	<-s2

	m.Cancel(KindRecording)
	assert.True(t, m.Running(KindDebounce))
	assert.False(t, m.Running(KindRecording))

	m.CancelAll()
	assert.Equal(t, int32(2), exited.Load())
}

func TestFinishedJobIsRemoved(t *testing.T) {
	m := NewManager(nil)
	m.Start(context.Background(), KindTranscription, func(context.Context) error { return nil })

	require.Eventually(t, func() bool { return !m.Running(KindTranscription) }, time.Second, time.Millisecond)
}

func TestParentCancellationStopsJob(t *testing.T) {
	m := NewManager(nil)
	var exited atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	m.Start(ctx, KindDebounce, blockingJob(nil, &exited))
	cancel()

	require.Eventually(t, func() bool { return exited.Load() == 1 }, time.Second, time.Millisecond)
	m.CancelAll()
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "recording", KindRecording.String())
	assert.Equal(t, "transcription", KindTranscription.String())
	assert.Equal(t, "debounce", KindDebounce.String())
}
