package session

import (
	"time"

	"golang.org/x/time/rate"
)

// inboundLimiter bounds how fast a client may push audio frames. A nil
// limiter allows everything.
type inboundLimiter struct {
	frames *rate.Limiter
	now    func() time.Time
}

func newInboundLimiter(maxFPS, burstSeconds int, now func() time.Time) *inboundLimiter {
	if maxFPS <= 0 {
		return nil
	}
	if burstSeconds < 1 {
		burstSeconds = 1
	}
	if now == nil {
		now = time.Now
	}
	return &inboundLimiter{
		frames: rate.NewLimiter(rate.Limit(maxFPS), maxFPS*burstSeconds),
		now:    now,
	}
}

func (l *inboundLimiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.frames.AllowN(l.now(), 1)
}
