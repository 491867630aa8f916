// Package bot defines the transport-agnostic request model and the command
// router that every admitted update is dispatched through. The Telegram
// binding (internal/telegram) translates raw updates into Requests and
// replies; handlers and middleware only ever see the types in this package,
// which keeps them testable without a live chat connection.
package bot

import (
	"context"
	"io"
	"strings"
	"time"
)

// Request is one inbound event: a message, a command, or a callback from an
// inline keyboard. Exactly one Request is produced per transport update and
// flows through the full admission pipeline.
type Request struct {
	// ID is the correlation identifier attached to logs and telemetry.
	ID string

	// Identity is the opaque integer identifier of the requesting
	// principal, as supplied by the transport. Immutable per request.
	Identity int64

	// Username is advisory display information; never used for
	// authorization decisions.
	Username string

	// ChatID identifies the conversation the reply must go to.
	ChatID int64

	// Private reports whether this is a one-to-one conversation. The
	// generic chat handler only fires in private conversations.
	Private bool

	// Text is the raw message text, possibly with a leading command token.
	Text string

	// Callback marks a synthetic event raised when the user invoked an
	// inline keyboard action; CallbackData carries the opaque action id.
	Callback     bool
	CallbackData string

	// Voice is set when the update carries a voice attachment.
	Voice *Voice

	// ReceivedAt is the transport-assigned arrival time.
	ReceivedAt time.Time

	// Command is filled in by the router with the name of the matched
	// route ("ask", "chat", "unknown", ...). Middleware running after
	// dispatch (telemetry) reads it; handlers must not modify it.
	Command string

	// Responder sends replies for this request.
	Responder Responder
}

// Voice describes a voice attachment. Open streams the audio from the
// transport; the caller owns the returned reader.
type Voice struct {
	FileID   string
	Duration time.Duration
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// Button is one labeled action in an inline keyboard row. Action is the
// opaque identifier echoed back in the resulting callback Request.
type Button struct {
	Label  string
	Action string
}

// Responder sends user-visible output for a single request. Implementations
// belong to the transport layer; tests substitute an in-memory recorder.
type Responder interface {
	// Reply sends a text reply to the originating conversation.
	Reply(ctx context.Context, text string) error

	// ReplyKeyboard sends text with an inline keyboard of action buttons.
	ReplyKeyboard(ctx context.Context, text string, rows [][]Button) error

	// ReplyPhoto sends an image by URL with an optional caption.
	ReplyPhoto(ctx context.Context, url, caption string) error

	// ReplyAudio sends synthesized audio.
	ReplyAudio(ctx context.Context, audio io.Reader, caption string) error

	// Typing shows a transient "typing…" indicator. Best effort; errors
	// are ignored by callers.
	Typing(ctx context.Context) error
}

// Handler processes one admitted request. Returning an error marks the
// request as failed for logging and telemetry; the user-visible error reply
// has already been sent by the dispatch wrapper by the time it propagates.
type Handler func(ctx context.Context, req *Request) error

// Middleware wraps a Handler with a cross-cutting concern. Stages are
// composed once at startup into an explicit chain; there is no per-handler
// decoration.
type Middleware func(Handler) Handler

// Chain composes middleware around h. The first element of mw is the
// outermost stage, so Chain(h, a, b) runs a → b → h.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// CommandToken extracts the leading command token from text, without the
// sigil and without a trailing "@botname" mention. It returns "" when text
// does not start with the command sigil.
func CommandToken(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	tok := text[1:]
	if i := strings.IndexAny(tok, " \t\n"); i >= 0 {
		tok = tok[:i]
	}
	if i := strings.IndexByte(tok, '@'); i >= 0 {
		tok = tok[:i]
	}
	return tok
}

// Argument returns the remainder of text after the leading command token,
// trimmed. For "/ask  what is Go?" it returns "what is Go?".
func Argument(text string) string {
	if !strings.HasPrefix(text, "/") {
		return strings.TrimSpace(text)
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}
