package server

import (
	"sync"
	"time"
)

// SubmitLimiter restricts how frequently a single client address can
// submit sticker or print requests.
type SubmitLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
}

// NewSubmitLimiter creates a limiter allowing max submissions per
// window per client address.
func NewSubmitLimiter(max int, window time.Duration) *SubmitLimiter {
	return &SubmitLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
}

// Allow returns true if the client has not exceeded the rate limit.
func (l *SubmitLimiter) Allow(clientAddr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	recent := make([]time.Time, 0, l.max)
	for _, t := range l.attempts[clientAddr] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.attempts[clientAddr] = recent
		return false
	}

	l.attempts[clientAddr] = append(recent, now)
	return true
}
