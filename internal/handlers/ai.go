package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/clients/openai"
	"github.com/alkaitz/telepilot/internal/metrics"
	"github.com/alkaitz/telepilot/internal/repo"
)

// historyDepth is how many past exchanges are replayed as conversation
// context for free-text chat.
const historyDepth = 10

const aiUnconfigured = "🧠 The AI assistant is not configured."

// Ask handles /ask: a single question with no conversation context.
func (d *Deps) Ask(ctx context.Context, req *bot.Request) error {
	return d.answer(ctx, req, "", bot.Argument(req.Text),
		"🧠 What would you like to ask? Usage: /ask [question]")
}

// Explain handles /explain with a tutoring system prompt.
func (d *Deps) Explain(ctx context.Context, req *bot.Request) error {
	return d.answer(ctx, req,
		"You are a patient teacher. Explain the topic clearly and concisely, using plain language and a short example where it helps.",
		bot.Argument(req.Text),
		"🧠 What should I explain? Usage: /explain [topic]")
}

// Code handles /code with a programming-assistant system prompt.
func (d *Deps) Code(ctx context.Context, req *bot.Request) error {
	return d.answer(ctx, req,
		"You are an expert programmer. Answer with working code first, then a brief explanation. Prefer standard libraries.",
		bot.Argument(req.Text),
		"🧠 Describe the code you need. Usage: /code [request]")
}

// Summarize handles /summarize.
func (d *Deps) Summarize(ctx context.Context, req *bot.Request) error {
	return d.answer(ctx, req,
		"Summarize the given text into a few short bullet points, keeping the key facts.",
		bot.Argument(req.Text),
		"🧠 Paste the text to summarize. Usage: /summarize [text]")
}

// answer runs a one-shot completion with an optional system prompt.
func (d *Deps) answer(ctx context.Context, req *bot.Request, system, prompt, usage string) error {
	if prompt == "" {
		return req.Responder.Reply(ctx, usage)
	}
	if d.AI == nil {
		return req.Responder.Reply(ctx, aiUnconfigured)
	}
	typing(ctx, req)

	var msgs []openai.Message
	if system != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: prompt})

	reply, err := d.AI.Chat(ctx, msgs)
	if err != nil {
		return fmt.Errorf("ai completion: %w", err)
	}
	return req.Responder.Reply(ctx, reply)
}

// Chat is the conversational route for non-command text in private chats.
// Voice messages land here too: they are transcribed first and then
// answered like typed text. The last exchanges are replayed as context so
// follow-up questions work.
func (d *Deps) Chat(ctx context.Context, req *bot.Request) error {
	if d.AI == nil {
		return d.Echo(ctx, req)
	}

	prompt := strings.TrimSpace(req.Text)
	kind := "text"
	if req.Voice != nil {
		metrics.VoiceMessages.Inc()
		kind = "voice"
		text, err := d.transcribe(ctx, req)
		if err != nil {
			return err
		}
		prompt = text
		if err := req.Responder.Reply(ctx, "🎙️ You said: "+prompt); err != nil {
			return err
		}
	}
	if prompt == "" {
		return d.Echo(ctx, req)
	}
	typing(ctx, req)

	msgs := []openai.Message{{
		Role:    "system",
		Content: "You are a helpful personal assistant in a Telegram chat. Keep answers short and friendly.",
	}}
	if d.DB != nil {
		history, err := repo.RecentHistory(ctx, d.DB, req.Identity, historyDepth)
		if err == nil {
			for _, h := range history {
				msgs = append(msgs,
					openai.Message{Role: "user", Content: h.Prompt},
					openai.Message{Role: "assistant", Content: h.Reply})
			}
		}
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: prompt})

	reply, err := d.AI.Chat(ctx, msgs)
	if err != nil {
		return fmt.Errorf("ai chat: %w", err)
	}
	if d.DB != nil {
		// History is context, not a record; a failed write costs one turn of
		// memory and nothing else.
		_ = repo.AppendHistory(ctx, d.DB, req.Identity, prompt, reply, kind)
	}
	return req.Responder.Reply(ctx, reply)
}

// ClearChat handles /clear and wipes the stored conversation context.
func (d *Deps) ClearChat(ctx context.Context, req *bot.Request) error {
	if d.DB == nil {
		return req.Responder.Reply(ctx, "🧠 No conversation memory is configured.")
	}
	n, err := repo.ClearHistory(ctx, d.DB, req.Identity)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return req.Responder.Reply(ctx, fmt.Sprintf("🧹 Forgot %d messages. We start fresh!", n))
}

// TTS handles /tts: synthesize the argument text and send it as audio.
func (d *Deps) TTS(ctx context.Context, req *bot.Request) error {
	text := bot.Argument(req.Text)
	if text == "" {
		return req.Responder.Reply(ctx, "🎙️ What should I say? Usage: /tts [text]")
	}
	if d.AI == nil {
		return req.Responder.Reply(ctx, aiUnconfigured)
	}
	typing(ctx, req)

	audio, err := d.AI.Speak(ctx, text, "")
	if err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}
	return req.Responder.ReplyAudio(ctx, bytes.NewReader(audio), "🎙️")
}

// transcribe downloads and transcribes the request's voice attachment.
func (d *Deps) transcribe(ctx context.Context, req *bot.Request) (string, error) {
	rc, err := req.Voice.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open voice file: %w", err)
	}
	defer rc.Close()
	text, err := d.AI.Transcribe(ctx, rc, req.Voice.FileID+".ogg")
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("transcription: empty result")
	}
	return text, nil
}
