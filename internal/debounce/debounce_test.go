package debounce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu  sync.Mutex
	got []string
}

func (c *collector) emit(_ context.Context, text string) {
	c.mu.Lock()
	c.got = append(c.got, text)
	c.mu.Unlock()
}

func (c *collector) values() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func runDebouncer(t *testing.T, d *Debouncer) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestLatestInputWins(t *testing.T) {
	c := &collector{}
	d := New(30*time.Millisecond, c.emit)
	runDebouncer(t, d)

	d.Submit("what is")
	d.Submit("what is a")
	d.Submit("what is a volcano")

	require.Eventually(t, func() bool { return len(c.values()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"what is a volcano"}, c.values())
}

func TestSeparateBurstsEmitSeparately(t *testing.T) {
	c := &collector{}
	d := New(20*time.Millisecond, c.emit)
	runDebouncer(t, d)

	d.Submit("first")
	require.Eventually(t, func() bool { return len(c.values()) == 1 }, time.Second, 5*time.Millisecond)
	d.Submit("second")
	require.Eventually(t, func() bool { return len(c.values()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, c.values())
}

func TestZeroWindowEmitsImmediately(t *testing.T) {
	c := &collector{}
	d := New(0, c.emit)
	runDebouncer(t, d)

	d.Submit("a")
	d.Submit("b")
	require.Eventually(t, func() bool { return len(c.values()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, c.values())
}

func TestCancelDropsPending(t *testing.T) {
	c := &collector{}
	d := New(time.Hour, c.emit)
	cancel := runDebouncer(t, d)

	d.Submit("never sent")
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	assert.Empty(t, c.values())
}

func TestBlankInputIgnored(t *testing.T) {
	d := New(time.Millisecond, func(context.Context, string) {})
	assert.True(t, d.Submit("   "))
	assert.Empty(t, d.in)
}

func TestSubmitFullBuffer(t *testing.T) {
	d := New(time.Millisecond, func(context.Context, string) {})
	for i := 0; i < inputBuffer; i++ {
		require.True(t, d.Submit("x"))
	}
	assert.False(t, d.Submit("overflow"))
	d.Drain()
	assert.True(t, d.Submit("after drain"))
}
