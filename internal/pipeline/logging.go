// Structured request logging and admission metrics.
//
// Logging assigns each request its correlation ID, emits one structured log
// line per request with outcome-based level selection, and feeds the
// request counters and latency histogram. It is the outermost stage so
// every request is visible, including ones later rejected by the gate or
// the limiter.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/metrics"
)

// maxTextLogLength caps how much of the raw message text is logged.
const maxTextLogLength = 100

// Logging returns the outermost pipeline stage.
func Logging() bot.Middleware {
	return func(next bot.Handler) bot.Handler {
		return func(ctx context.Context, req *bot.Request) error {
			start := time.Now()
			if req.ID == "" {
				req.ID = uuid.NewString()
			}
			metrics.Requests.Inc()

			err := next(ctx, req)

			latency := time.Since(start)
			metrics.RequestDuration.Observe(latency.Seconds())

			ev := log.With().
				Str("request_id", req.ID).
				Int64("user_id", req.Identity).
				Str("username", req.Username).
				Str("command", req.Command).
				Str("text", truncate(req.Text, maxTextLogLength)).
				Bool("callback", req.Callback).
				Dur("latency", latency).
				Logger()

			if err != nil {
				ev.Error().Err(err).Msg("request")
			} else {
				ev.Info().Msg("request")
			}
			// The error was already translated into a user-visible reply at
			// the dispatch boundary; it stops here.
			return nil
		}
	}
}

// truncate returns s unchanged when within max length, otherwise it clips
// s to max bytes and appends an ellipsis. Byte-based clipping is acceptable
// for logging.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
