package storage

import (
	"io"
	"sync"
)

// progressTracker accumulates transferred bytes and forwards the total to a ProgressFunc
// until finish is called.
type progressTracker struct {
	mu   sync.Mutex
	fn   ProgressFunc
	n    int64
	done bool
}

// newProgressTracker returns nil when fn is nil so callers can skip wrapping entirely.
func newProgressTracker(fn ProgressFunc) *progressTracker {
	if fn == nil {
		return nil
	}
	return &progressTracker{fn: fn}
}

func (t *progressTracker) add(n int64) {
	if t == nil || n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.n += n
	t.fn(t.n)
}

// finish stops further notifications. It waits for an in-flight notification to return.
func (t *progressTracker) finish() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()
}

// Read lets minio's progress hook report into the tracker: it is called with a buffer
// sized to the bytes just uploaded.
func (t *progressTracker) Read(p []byte) (int, error) {
	t.add(int64(len(p)))
	return len(p), nil
}

// wrap counts bytes as the uploader reads them from r.
func (t *progressTracker) wrap(r io.Reader) io.Reader {
	if t == nil {
		return r
	}
	return &countingReader{r: r, t: t}
}

type countingReader struct {
	r io.Reader
	t *progressTracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.t.add(int64(n))
	return n, err
}
