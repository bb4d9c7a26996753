package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
)

// AudioSource streams raw PCM into w until ctx is done or the source ends.
type AudioSource interface {
	Capture(ctx context.Context, w io.Writer) error
}

// ReaderSource captures from an io.Reader such as a file or a pipe of raw
// PCM. When R is also an io.Closer, Capture owns it: R is closed when ctx is
// done, which unblocks a pending Read, and again when Capture returns. A
// reader that can block and cannot be closed keeps the recording job alive
// until its Read returns.
type ReaderSource struct {
	R io.Reader
}

const chunkSize = 4096

func (s ReaderSource) Capture(ctx context.Context, w io.Writer) error {
	if c, ok := s.R.(io.Closer); ok {
		closeOnce := sync.OnceValue(c.Close)
		stop := context.AfterFunc(ctx, func() { _ = closeOnce() })
		defer func() {
			stop()
			_ = closeOnce()
		}()
	}

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := s.R.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				// Closed by cancellation.
				return nil
			}
			return err
		}
	}
}

// CommandSource captures the stdout of an external recorder, for example
// "arecord -q -f S16_LE -r 16000 -c 1 -t raw".
type CommandSource struct {
	Name string
	Args []string
}

func (s CommandSource) Capture(ctx context.Context, w io.Writer) error {
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	cmd.Stdout = w
	err := cmd.Run()
	if ctx.Err() != nil {
		// Stopping the recording kills the process; that is the normal end.
		return nil
	}
	return err
}

// Recorder buffers audio from a source. Run is the body of the recording
// job; Take collects the audio once the job has been stopped.
type Recorder struct {
	source AudioSource

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewRecorder creates a recorder for source.
func NewRecorder(source AudioSource) *Recorder {
	return &Recorder{source: source}
}

// Run captures until ctx is done or the source ends.
func (r *Recorder) Run(ctx context.Context) error {
	return r.source.Capture(ctx, lockedWriter{r})
}

// Take returns the captured audio and clears the buffer.
func (r *Recorder) Take() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()
	return out
}

type lockedWriter struct{ r *Recorder }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	return w.r.buf.Write(p)
}
