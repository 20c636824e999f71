// Package ratelimit provides a token bucket limiter for bounding copy
// bandwidth. A nil *Limiter means unlimited and is safe to pass around.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

const minBucket = 64 * 1024

// Limiter is a token bucket shared by all readers of a transfer. Tokens
// are bytes; the bucket holds one second of budget so short bursts do
// not stall.
type Limiter struct {
	rate   int64 // bytes per second
	bucket int64

	mu     sync.Mutex
	tokens int64
	last   time.Time
}

// NewLimiter creates a limiter allowing bytesPerSecond of throughput.
// A non-positive rate returns nil, which disables limiting.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	bucket := bytesPerSecond
	if bucket < minBucket {
		bucket = minBucket
	}
	return &Limiter{
		rate:   bytesPerSecond,
		bucket: bucket,
		tokens: bucket,
		last:   time.Now(),
	}
}

// Take blocks until n tokens are available, then consumes them. It
// returns early with the context error on cancellation. n is clamped
// to the bucket size so oversized requests cannot deadlock.
func (l *Limiter) Take(ctx context.Context, n int64) error {
	if l == nil {
		return nil
	}
	if n > l.bucket {
		n = l.bucket
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration(float64(n-l.tokens) / float64(l.rate) * float64(time.Second))
		l.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *Limiter) refill() {
	now := time.Now()
	earned := int64(now.Sub(l.last).Seconds() * float64(l.rate))
	if earned <= 0 {
		return
	}
	l.tokens += earned
	if l.tokens > l.bucket {
		l.tokens = l.bucket
	}
	l.last = now
}

type reader struct {
	r   io.Reader
	lim *Limiter
	ctx context.Context
}

// NewReader wraps r so reads draw from the limiter. With a nil limiter
// r is returned unchanged.
func NewReader(ctx context.Context, r io.Reader, lim *Limiter) io.Reader {
	if lim == nil {
		return r
	}
	return &reader{r: r, lim: lim, ctx: ctx}
}

func (r *reader) Read(p []byte) (int, error) {
	n := int64(len(p))
	if n > r.lim.bucket {
		n = r.lim.bucket
	}
	if err := r.lim.Take(r.ctx, n); err != nil {
		return 0, err
	}
	read, err := r.r.Read(p[:n])
	if int64(read) < n {
		// Return unused budget so slow sources are not double charged.
		r.lim.mu.Lock()
		r.lim.tokens += n - int64(read)
		if r.lim.tokens > r.lim.bucket {
			r.lim.tokens = r.lim.bucket
		}
		r.lim.mu.Unlock()
	}
	return read, err
}
