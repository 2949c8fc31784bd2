package http

import "time"

// defaultMessageLimit caps inbound ws messages per connection per minute.
// Typing indicators re-arm every 2s and code changes are debounced client
// side, so a well-behaved editor stays far below this.
const defaultMessageLimit = 600

// rateLimiter is a fixed-window counter, one per connection. It is only
// touched from that connection's read loop, so no locking is needed.
type rateLimiter struct {
	limit   int
	counter int
	reset   *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit: limit,
		reset: time.NewTicker(time.Minute),
	}
}

// allow consumes one slot in the current window. A zero limit disables
// limiting entirely.
func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	select {
	case <-r.reset.C:
		r.counter = 0
	default:
	}
	r.counter++
	return r.counter <= r.limit
}

func (r *rateLimiter) stop() {
	if r != nil && r.reset != nil {
		r.reset.Stop()
	}
}
