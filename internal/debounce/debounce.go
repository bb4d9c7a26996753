// Package debounce coalesces bursts of input into a single turn.
package debounce

import (
	"context"
	"strings"
	"time"
)

// DefaultWindow is the quiet period after the last input before it is
// emitted.
const DefaultWindow = 300 * time.Millisecond

const inputBuffer = 64

// EmitFunc receives the settled input.
type EmitFunc func(ctx context.Context, text string)

// Debouncer emits the latest input once no new input has arrived for the
// window. Earlier inputs in a burst are superseded.
type Debouncer struct {
	window time.Duration
	in     chan string
	emit   EmitFunc
}

// New creates a debouncer. A non-positive window emits every input
// immediately.
func New(window time.Duration, emit EmitFunc) *Debouncer {
	return &Debouncer{
		window: window,
		in:     make(chan string, inputBuffer),
		emit:   emit,
	}
}

// Submit queues raw input. Blank input is ignored. It returns false if the
// input buffer is full.
func (d *Debouncer) Submit(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	select {
	case d.in <- text:
		return true
	default:
		return false
	}
}

// Run processes input until ctx is done. Pending input is dropped on
// cancellation.
func (d *Debouncer) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var (
		pending    string
		hasPending bool
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-d.in:
			if d.window <= 0 {
				d.emit(ctx, text)
				continue
			}
			pending, hasPending = text, true
			timer.Reset(d.window)
		case <-timer.C:
			if hasPending {
				text := pending
				pending, hasPending = "", false
				d.emit(ctx, text)
			}
		}
	}
}

// Drain discards input that was queued but not yet processed.
func (d *Debouncer) Drain() {
	for {
		select {
		case <-d.in:
		default:
			return
		}
	}
}
