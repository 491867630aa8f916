// Package telegram binds the transport-agnostic request pipeline to the
// Telegram Bot API via telebot. It translates incoming updates into
// bot.Requests, implements the Responder used to deliver replies, and runs
// either the long poller or the webhook feed depending on configuration.
package telegram

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/config"
)

// handlerTimeout bounds one request end to end, outbound calls included.
const handlerTimeout = 90 * time.Second

// Bot owns the telebot connection and feeds updates into the pipeline.
type Bot struct {
	tb      *tele.Bot
	handler bot.Handler
	log     zerolog.Logger
	webhook bool
}

// New connects to the Bot API and registers the update handlers. handler is
// the fully composed admission pipeline.
func New(cfg config.TelegramConfig, handler bot.Handler, log zerolog.Logger) (*Bot, error) {
	settings := tele.Settings{
		Token: cfg.Token,
		// Updates arrive through ProcessUpdate in webhook mode; the poller
		// is only started for long-poll deployments.
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	}
	tb, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}

	b := &Bot{
		tb:      tb,
		handler: handler,
		log:     log,
		webhook: cfg.WebhookURL != "",
	}
	tb.Handle(tele.OnText, b.onUpdate)
	tb.Handle(tele.OnVoice, b.onUpdate)
	tb.Handle(tele.OnCallback, b.onCallback)
	return b, nil
}

// Start begins consuming updates. In long-poll mode it blocks until Stop;
// in webhook mode updates arrive via ProcessUpdate and Start only registers
// the webhook with the Bot API.
func (b *Bot) Start(cfg config.TelegramConfig) error {
	if b.webhook {
		wh := &tele.Webhook{
			Endpoint:    &tele.WebhookEndpoint{PublicURL: cfg.WebhookURL},
			SecretToken: cfg.WebhookSecret,
		}
		if err := b.tb.SetWebhook(wh); err != nil {
			return fmt.Errorf("telegram: set webhook: %w", err)
		}
		b.log.Info().Str("url", cfg.WebhookURL).Msg("webhook registered")
		return nil
	}
	b.log.Info().Msg("long polling started")
	b.tb.Start()
	return nil
}

// Stop shuts down the poller (long-poll mode only).
func (b *Bot) Stop() {
	if !b.webhook {
		b.tb.Stop()
	}
}

// ProcessUpdate feeds one decoded webhook update into telebot. The HTTP
// layer owns secret validation; by the time an update reaches here it is
// trusted input.
func (b *Bot) ProcessUpdate(u tele.Update) {
	b.tb.ProcessUpdate(u)
}

// Announce publishes the command menu shown by Telegram clients.
func (b *Bot) Announce(commands []string, descriptions map[string]string) error {
	out := make([]tele.Command, 0, len(commands))
	for _, c := range commands {
		desc := descriptions[c]
		if desc == "" {
			desc = "/" + c
		}
		out = append(out, tele.Command{Text: c, Description: desc})
	}
	return b.tb.SetCommands(out)
}

// onUpdate translates a text or voice update and runs the pipeline.
func (b *Bot) onUpdate(c tele.Context) error {
	req := b.buildRequest(c)
	b.dispatch(req)
	return nil
}

// onCallback translates an inline keyboard callback. The callback is
// acknowledged immediately so the client stops its spinner regardless of
// how long the handler takes.
func (b *Bot) onCallback(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{})

	req := b.buildRequest(c)
	req.Callback = true
	req.CallbackData = callbackAction(c.Callback().Data)
	b.dispatch(req)
	return nil
}

// dispatch runs the composed pipeline with the per-request timeout. Errors
// are fully handled inside the pipeline; nothing propagates to telebot,
// whose own error path would reply with internals.
func (b *Bot) dispatch(req *bot.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	_ = b.handler(ctx, req)
}

// buildRequest maps the telebot context onto the pipeline request model.
func (b *Bot) buildRequest(c tele.Context) *bot.Request {
	req := &bot.Request{
		ReceivedAt: time.Now().UTC(),
		Responder:  &responder{c: c},
	}
	if s := c.Sender(); s != nil {
		req.Identity = s.ID
		req.Username = s.Username
	}
	if ch := c.Chat(); ch != nil {
		req.ChatID = ch.ID
		req.Private = ch.Type == tele.ChatPrivate
	}
	if m := c.Message(); m != nil {
		req.Text = m.Text
		if m.Voice != nil {
			voice := m.Voice
			req.Voice = &bot.Voice{
				FileID:   voice.FileID,
				Duration: time.Duration(voice.Duration) * time.Second,
				Open: func(ctx context.Context) (io.ReadCloser, error) {
					return b.tb.File(&voice.File)
				},
			}
		}
	}
	return req
}

// responder delivers replies through the originating telebot context.
type responder struct {
	c tele.Context
}

func (r *responder) Reply(_ context.Context, text string) error {
	return r.c.Send(text)
}

func (r *responder) ReplyKeyboard(_ context.Context, text string, rows [][]bot.Button) error {
	return r.c.Send(text, inlineKeyboard(rows))
}

func (r *responder) ReplyPhoto(_ context.Context, url, caption string) error {
	photo := &tele.Photo{File: tele.FromURL(url), Caption: caption}
	return r.c.Send(photo)
}

func (r *responder) ReplyAudio(_ context.Context, audio io.Reader, caption string) error {
	voice := &tele.Audio{File: tele.FromReader(audio), Caption: caption, FileName: "reply.mp3"}
	return r.c.Send(voice)
}

func (r *responder) Typing(context.Context) error {
	return r.c.Notify(tele.Typing)
}

// callbackAction normalizes inline button data: telebot prefixes data from
// typed buttons with \f.
func callbackAction(data string) string {
	return strings.TrimPrefix(strings.TrimSpace(data), "\f")
}

// inlineKeyboard converts the transport-agnostic button rows into telebot
// markup.
func inlineKeyboard(rows [][]bot.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	keyboard := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		out := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			out = append(out, tele.InlineButton{Text: btn.Label, Data: btn.Action})
		}
		keyboard = append(keyboard, out)
	}
	markup.InlineKeyboard = keyboard
	return markup
}
