// Package pipeline implements the request admission pipeline: the ordered
// middleware chain every inbound update passes through before a handler
// runs. Stages are explicitly constructed and composed once at startup
// (bot.Chain); there is no global state and no per-handler decoration, so a
// test can build a fresh pipeline per case.
//
// Canonical order:
//
//	Logging → Gate → Limiter → Telemetry → Router
//
// The gate runs before the limiter so unauthorized traffic cannot consume
// rate budget, and telemetry sits inside both so rejected requests are
// never recorded.
package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/metrics"
)

// UnauthorizedReply is the fixed message sent to identities outside the
// allow-list. It is the only side effect of an authorization rejection: no
// handler runs and no activity record is written, so unauthorized users
// cannot be fingerprinted through telemetry.
const UnauthorizedReply = "❌ You are not authorized to use this bot."

// Gate is the authorization stage: a static allow-list membership check.
//
// An empty allow-list admits everyone. That open-access mode is deliberate
// (development deployments) but risky, so construction logs it loudly
// instead of leaving it as an implicit fallthrough.
type Gate struct {
	allowed map[int64]struct{}
}

// NewGate builds a Gate from the configured identity list. The list is
// read-only for the process lifetime; the Gate is safe for concurrent use.
func NewGate(ids []int64) *Gate {
	g := &Gate{}
	if len(ids) == 0 {
		log.Warn().Msg("allow-list is empty: running in OPEN ACCESS mode, every identity is admitted")
		return g
	}
	g.allowed = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		g.allowed[id] = struct{}{}
	}
	return g
}

// Admit reports whether identity may use the bot.
func (g *Gate) Admit(identity int64) bool {
	if g.allowed == nil {
		return true
	}
	_, ok := g.allowed[identity]
	return ok
}

// Middleware returns the pipeline stage enforcing the gate. Rejected
// requests short-circuit with the fixed reply and a warning log; they are
// deliberately invisible to downstream stages.
func (g *Gate) Middleware() bot.Middleware {
	return func(next bot.Handler) bot.Handler {
		return func(ctx context.Context, req *bot.Request) error {
			if g.Admit(req.Identity) {
				return next(ctx, req)
			}
			metrics.Unauthorized.Inc()
			log.Warn().
				Int64("user_id", req.Identity).
				Str("request_id", req.ID).
				Msg("unauthorized access attempt")
			if req.Responder != nil {
				if err := req.Responder.Reply(ctx, UnauthorizedReply); err != nil {
					log.Warn().Err(err).Str("request_id", req.ID).Msg("rejection reply delivery failed")
				}
			}
			return nil
		}
	}
}
