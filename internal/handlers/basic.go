package handlers

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/sysutil"
)

const welcomeText = `🤖 Welcome to your personal assistant!

I can help you with:

🧠 AI — /ask, /explain, /code, /summarize, or just chat with me
🎙️ Voice — send a voice message, or /tts to hear me speak
🖼️ Images — /generate an image from a prompt
🏠 Smart home — /lights, /scene, /temp, /home
🚗 Tesla — /tesla, /climate, /charge
💸 Finance — /stock, /crypto, /market
📰 News — /news, /feeds
📚 Notes — /note, /notes, /search
🎮 Fun — /joke, /fact, /meme, /gif

Type /help for the full command reference.`

// Start handles /start: the welcome text plus the quick-access keyboard.
func (d *Deps) Start(ctx context.Context, req *bot.Request) error {
	rows := [][]bot.Button{
		{{Label: "🧠 AI Chat", Action: "menu_ai"}, {Label: "🏠 Smart Home", Action: "menu_home"}},
		{{Label: "💸 Finance", Action: "menu_finance"}, {Label: "📰 News", Action: "menu_news"}},
		{{Label: "🎮 Fun", Action: "menu_fun"}, {Label: "❓ Help", Action: "menu_help"}},
	}
	return req.Responder.ReplyKeyboard(ctx, welcomeText, rows)
}

const helpText = `📖 Command Reference

🧠 AI
/ask [question] — ask anything
/explain [topic] — a clear explanation
/code [request] — programming help
/summarize [text] — shorten long text
/clear — forget our conversation

🎙️ Voice & Images
Send a voice message — I transcribe and answer it
/tts [text] — text to speech
/generate [--size 1024x1024] [prompt] — create an image

🏠 Smart Home
/lights [on|off|dim N] — control the lights
/scene [name] — activate a scene
/temp [°C] — set or read the temperature
/home — entity overview

🚗 Tesla
/tesla — vehicle status
/climate [°C] — precondition the cabin
/charge [start|stop|limit N] — charging controls

💸 Finance
/stock [symbol] — stock quote
/crypto [coin] — crypto price
/market — market overview

📰 News
/news [category] — top headlines
/feeds — your RSS subscriptions

📚 Notes
/note [title: body] — save a note
/notes [page] — list your notes
/search [query] — search your notes

🎮 Fun
/joke  /fact  /meme  /gif [tag]

⚙️ Admin
/status — runtime status
/stats — usage statistics
/metrics — bot counters snapshot
/workflows — automation workflows`

// Help handles /help. It takes the router so the footer can reflect the
// commands actually registered.
func (d *Deps) Help(r *bot.Router) bot.Handler {
	return func(ctx context.Context, req *bot.Request) error {
		text := helpText + fmt.Sprintf("\n\n%d commands available.", len(r.Commands()))
		return req.Responder.Reply(ctx, text)
	}
}

// Status handles /status with process-level runtime information.
func (d *Deps) Status(ctx context.Context, req *bot.Request) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var b strings.Builder
	b.WriteString("🤖 Bot Status\n\n")
	fmt.Fprintf(&b, "⏱️ Uptime: %s\n", sysutil.FormatDuration(time.Since(d.StartedAt)))
	fmt.Fprintf(&b, "📦 Version: %s\n", d.Version)
	fmt.Fprintf(&b, "🧵 Goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&b, "💾 Memory: %d MB in use\n\n", m.Alloc/1024/1024)

	b.WriteString("🔗 Services:\n")
	fmt.Fprintf(&b, "• Database: %s\n", okOrDash(d.DB != nil))
	fmt.Fprintf(&b, "• AI: %s\n", okOrDash(d.AI != nil))
	fmt.Fprintf(&b, "• Smart home: %s\n", okOrDash(d.Home != nil))
	fmt.Fprintf(&b, "• Tesla: %s\n", okOrDash(d.Car != nil))
	fmt.Fprintf(&b, "• Automations: %s\n", okOrDash(d.N8N != nil && d.N8N.Enabled()))
	return req.Responder.Reply(ctx, b.String())
}

func okOrDash(ok bool) string {
	if ok {
		return "✅ configured"
	}
	return "— not configured"
}

// Echo is the catch-all for text the router could not place anywhere else.
func (d *Deps) Echo(ctx context.Context, req *bot.Request) error {
	return req.Responder.Reply(ctx,
		"💬 I received your message! Try /help to see what I can do, or just chat with me using /ask [your message]")
}

// Unknown handles command text that matched no registered route.
func (d *Deps) Unknown(ctx context.Context, req *bot.Request) error {
	command := "/" + bot.CommandToken(req.Text)
	return req.Responder.Reply(ctx,
		fmt.Sprintf("🤔 I don't recognize the command '%s'. Try /help to see what I can do!", command))
}

// menu texts shown when a quick-access keyboard button is pressed.
var menuTexts = map[string]string{
	"menu_ai":      "🧠 AI Chat\n\n/ask [question] — chat with AI\n/explain [topic] — get explanations\n/code [request] — programming help\n/summarize [text] — summarize content\n\n💡 Example: /ask What is artificial intelligence?",
	"menu_home":    "🏠 Smart Home\n\n/lights on|off|dim 50 — control lights\n/scene movie_night — activate a scene\n/temp 21.5 — set temperature\n/home — entity overview",
	"menu_finance": "💸 Finance\n\n/stock AAPL — stock quote\n/crypto bitcoin — crypto price\n/market — market overview",
	"menu_news":    "📰 News\n\n/news technology — top headlines by category\n/feeds — your RSS subscriptions",
	"menu_fun":     "🎮 Fun\n\n/joke — random joke\n/fact — fun fact\n/meme — random meme\n/gif cats — random GIF",
	"menu_help":    helpText,
}

// Callback handles inline keyboard actions: the /start menu shortcuts and
// the delete buttons attached to note search results.
func (d *Deps) Callback(ctx context.Context, req *bot.Request) error {
	if text, ok := menuTexts[req.CallbackData]; ok {
		return req.Responder.Reply(ctx, text)
	}
	if id, ok := strings.CutPrefix(req.CallbackData, "delnote:"); ok {
		return d.deleteNote(ctx, req, id)
	}
	return req.Responder.Reply(ctx, "🤔 That button is no longer active. Try /start for a fresh menu.")
}
