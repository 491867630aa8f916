// Per-identity sliding-window rate limiting.
//
// Each identity carries an ordered list of admitted-request timestamps; a
// request is admitted while fewer than max timestamps fall inside the
// trailing window. A rejected request does not count toward the window, so
// a caller who simply waits and retries will eventually be admitted.
// Windows are pruned lazily on the identity's next request, with an
// opportunistic sweep of fully idle identities to keep the map bounded.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/metrics"
)

// RateLimitedReply is the fixed message sent on a rate-limit rejection.
// A rejection is expected behavior, not an error: it is neither logged as
// an error nor retried.
const RateLimitedReply = "⏰ Rate limit exceeded. Please wait a moment."

// sweepEvery is the number of Admit calls between opportunistic sweeps of
// identities whose whole window has expired.
const sweepEvery = 5000

// Limiter admits at most max requests per identity within a sliding
// window. Safe for concurrent use; a mutex guards the window map because
// requests are served from multiple goroutines.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[int64][]time.Time
	sweepN  uint64

	now func() time.Time // test seam
}

// NewLimiter constructs a Limiter with the given per-window ceiling.
// max <= 0 is coerced to 1; window <= 0 falls back to one minute.
func NewLimiter(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		max:     max,
		window:  window,
		windows: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Admit reports whether identity may proceed and, if so, charges the
// current instant to its window. A first-ever identity starts with an
// empty window.
func (l *Limiter) Admit(identity int64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic sweep before touching the requested identity so a
	// fully idle window can be dropped even when it is the one being
	// fetched.
	l.sweepN++
	if l.sweepN >= sweepEvery {
		for id, ts := range l.windows {
			if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= l.window {
				delete(l.windows, id)
			}
		}
		l.sweepN = 0
	}

	// Lazy prune: keep only timestamps inside the trailing window.
	w := l.windows[identity]
	kept := w[:0]
	for _, ts := range w {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.windows[identity] = kept
		metrics.ActiveUsers.Set(float64(len(l.windows)))
		return false
	}

	l.windows[identity] = append(kept, now)
	metrics.ActiveUsers.Set(float64(len(l.windows)))
	return true
}

// Middleware returns the pipeline stage enforcing the limiter. Rejections
// short-circuit with the fixed wait message.
func (l *Limiter) Middleware() bot.Middleware {
	return func(next bot.Handler) bot.Handler {
		return func(ctx context.Context, req *bot.Request) error {
			if l.Admit(req.Identity) {
				return next(ctx, req)
			}
			metrics.RateLimited.Inc()
			log.Debug().
				Int64("user_id", req.Identity).
				Str("request_id", req.ID).
				Msg("rate limited")
			if req.Responder != nil {
				if err := req.Responder.Reply(ctx, RateLimitedReply); err != nil {
					log.Warn().Err(err).Str("request_id", req.ID).Msg("rate-limit reply delivery failed")
				}
			}
			return nil
		}
	}
}
