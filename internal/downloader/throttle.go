package downloader

import (
	"context"
	"io"
	"time"
)

// throttledWriter caps write throughput at roughly bytesPerSec by
// sleeping between chunks. Good enough for politeness limits; not a
// precise token bucket.
type throttledWriter struct {
	ctx     context.Context
	w       io.Writer
	perSec  int64
	written int64
	start   time.Time
}

func newThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec int64) *throttledWriter {
	return &throttledWriter{ctx: ctx, w: w, perSec: bytesPerSec, start: time.Now()}
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.written += int64(n)
	if err != nil {
		return n, err
	}

	expected := time.Duration(float64(t.written) / float64(t.perSec) * float64(time.Second))
	if sleep := expected - time.Since(t.start); sleep > 0 {
		select {
		case <-time.After(sleep):
		case <-t.ctx.Done():
			return n, t.ctx.Err()
		}
	}
	return n, nil
}
