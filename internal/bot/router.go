// Command routing: an ordered dispatch table with first-match-wins
// semantics.
//
// Precedence is fully determined by registration order:
//  1. specific command routes, registered in a curated order grouped by
//     feature domain;
//  2. the generic conversational handler (non-command text in a private
//     conversation);
//  3. the unknown-command catch-all (command sigil, no route matched);
//  4. the echo catch-all for any remaining text.
//
// The router performs no overlap detection; registering a specific command
// after the catch-alls is a wiring bug, not a runtime error. Callback
// events bypass the table and go to the registered callback handler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alkaitz/telepilot/internal/metrics"
)

// Reserved route names recorded in Request.Command for the catch-all paths.
const (
	RouteChat     = "chat"
	RouteUnknown  = "unknown"
	RouteEcho     = "echo"
	RouteCallback = "callback"
)

// ErrorReply is the fixed user-visible message sent when a handler fails.
// The underlying cause is never leaked to the chat surface.
const ErrorReply = "❌ An error occurred while processing your request."

// TimeoutReply is sent instead of ErrorReply when the failure was an
// outbound-call deadline, so the user knows a retry is worthwhile.
const TimeoutReply = "⌛ That took too long to answer. Please try again."

// route is one entry in the dispatch table.
type route struct {
	command string
	handler Handler
}

// Router maps an incoming request to a single handler. It implements
// Handler itself so it can terminate the middleware chain.
//
// Routes are matched in registration order; the first match wins. The
// zero value is not usable; construct with NewRouter and register at
// least the catch-alls before serving.
type Router struct {
	routes   []route
	chat     Handler
	unknown  Handler
	echo     Handler
	callback Handler
}

// NewRouter returns an empty dispatch table.
func NewRouter() *Router {
	return &Router{}
}

// Handle registers h for the exact command token (without the sigil).
// Registration order is the precedence order.
func (r *Router) Handle(command string, h Handler) {
	r.routes = append(r.routes, route{command: command, handler: h})
}

// HandleChat registers the conversational handler that fires for
// non-command text in private conversations.
func (r *Router) HandleChat(h Handler) { r.chat = h }

// HandleUnknown registers the catch-all for unmatched command text.
func (r *Router) HandleUnknown(h Handler) { r.unknown = h }

// HandleEcho registers the catch-all for unmatched non-command text.
func (r *Router) HandleEcho(h Handler) { r.echo = h }

// HandleCallback registers the handler for inline keyboard callbacks.
func (r *Router) HandleCallback(h Handler) { r.callback = h }

// Commands returns the registered command tokens in precedence order.
// Used by /help and by the transport to advertise the command menu.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.command)
	}
	return out
}

// Serve implements Handler: it selects the route for req, records the
// route name in req.Command, and invokes the handler inside the failure
// isolation wrapper. A request that matches no route and has no applicable
// catch-all is dropped silently (non-text updates with no handler).
func (r *Router) Serve(ctx context.Context, req *Request) error {
	name, h := r.match(req)
	if h == nil {
		return nil
	}
	req.Command = name
	metrics.Commands.WithLabelValues(name).Inc()
	return r.invoke(ctx, name, h, req)
}

// match walks the precedence order and returns the winning route.
func (r *Router) match(req *Request) (string, Handler) {
	if req.Callback {
		return RouteCallback, r.callback
	}
	if tok := CommandToken(req.Text); tok != "" {
		for _, rt := range r.routes {
			if rt.command == tok {
				return rt.command, rt.handler
			}
		}
		return RouteUnknown, r.unknown
	}
	if req.Private && r.chat != nil {
		return RouteChat, r.chat
	}
	return RouteEcho, r.echo
}

// invoke runs h with per-dispatch failure isolation: panics become errors,
// every failure produces exactly one fixed-text error reply, and the error
// is propagated for pipeline-level logging only. A failing handler must
// never take down the process or affect other in-flight requests.
func (r *Router) invoke(ctx context.Context, name string, h Handler, req *Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in handler %s: %v", name, rec)
			metrics.Errors.WithLabelValues("panic").Inc()
			r.failRequest(ctx, name, req, err)
		}
	}()

	if err = h(ctx, req); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.Errors.WithLabelValues("timeout").Inc()
		} else {
			metrics.Errors.WithLabelValues("handler_error").Inc()
		}
		r.failRequest(ctx, name, req, err)
	}
	return err
}

// failRequest logs the failure with identity and command context and sends
// the fixed error reply.
func (r *Router) failRequest(ctx context.Context, name string, req *Request, err error) {
	log.Error().
		Err(err).
		Int64("user_id", req.Identity).
		Str("command", name).
		Str("request_id", req.ID).
		Msg("handler failed")

	if req.Responder == nil {
		return
	}
	reply := ErrorReply
	if errors.Is(err, context.DeadlineExceeded) {
		reply = TimeoutReply
	}
	// The request context may already be past its deadline; the error reply
	// still has to go out.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if rerr := req.Responder.Reply(sendCtx, reply); rerr != nil {
		log.Warn().Err(rerr).Str("request_id", req.ID).Msg("error reply delivery failed")
	}
}
