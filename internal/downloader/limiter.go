package downloader

import (
	"context"
	"errors"
	"time"
)

// Limiter bounds the number of concurrent downloads. Unbounded
// subprocess spawning is an operational risk, so a request waits for a
// slot up to the configured timeout and is then turned away.
type Limiter struct {
	slots   chan struct{}
	timeout time.Duration
}

func NewLimiter(max int, timeout time.Duration) *Limiter {
	return &Limiter{
		slots:   make(chan struct{}, max),
		timeout: timeout,
	}
}

func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.timeout):
		return wrapCategory(CategoryBusy, errors.New("server busy, try again later"))
	}
}

func (l *Limiter) Release() {
	<-l.slots
}
