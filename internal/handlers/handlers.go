// Package handlers implements the command handlers behind every route the
// bot serves. Handlers receive admitted requests only; authorization and
// rate limiting have already happened upstream, so a handler's job is to
// talk to its collaborator and format a reply.
//
// All handlers follow the same contract: send best-effort typing feedback,
// reply to the user on the happy path, and return an error otherwise. The
// dispatch wrapper owns the user-visible error reply.
package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/clients/homeassistant"
	"github.com/alkaitz/telepilot/internal/clients/market"
	"github.com/alkaitz/telepilot/internal/clients/n8n"
	"github.com/alkaitz/telepilot/internal/clients/news"
	"github.com/alkaitz/telepilot/internal/clients/openai"
	"github.com/alkaitz/telepilot/internal/clients/tesla"
)

// Deps carries the collaborators shared by the handler set. Any field may
// be nil or disabled; the owning handlers then answer with a "not
// configured" message instead of failing.
type Deps struct {
	DB     *gorm.DB
	AI     *openai.Client
	Home   *homeassistant.Client
	Car    *tesla.Client
	Market *market.Client
	News   *news.Client
	N8N    *n8n.Client

	// FeedURLs are the RSS subscriptions served by /feeds.
	FeedURLs []string

	// GiphyKey enables /gif; empty means the feature is off.
	GiphyKey string

	// AdminID is the identity allowed to run admin commands; 0 means no
	// admin is configured.
	AdminID int64

	StartedAt time.Time
	Version   string
}

// Register wires every handler into the router. Registration order is
// dispatch precedence, so the catch-alls must stay last.
func Register(r *bot.Router, d *Deps) {
	// Basic
	r.Handle("start", d.Start)
	r.Handle("help", d.Help(r))
	r.Handle("status", d.Status)

	// AI
	r.Handle("ask", d.Ask)
	r.Handle("explain", d.Explain)
	r.Handle("code", d.Code)
	r.Handle("summarize", d.Summarize)
	r.Handle("clear", d.ClearChat)

	// Voice and images
	r.Handle("tts", d.TTS)
	r.Handle("generate", d.Generate)

	// Smart home
	r.Handle("lights", d.Lights)
	r.Handle("scene", d.Scene)
	r.Handle("temp", d.Temp)
	r.Handle("home", d.Home_)

	// Tesla
	r.Handle("tesla", d.Tesla)
	r.Handle("climate", d.Climate)
	r.Handle("charge", d.Charge)

	// Finance
	r.Handle("stock", d.Stock)
	r.Handle("crypto", d.Crypto)
	r.Handle("market", d.MarketOverview)

	// News
	r.Handle("news", d.NewsHeadlines)
	r.Handle("feeds", d.Feeds)

	// Notes
	r.Handle("note", d.NoteSave)
	r.Handle("notes", d.NoteList)
	r.Handle("search", d.NoteSearch)

	// Fun
	r.Handle("joke", d.Joke)
	r.Handle("fact", d.Fact)
	r.Handle("meme", d.Meme)
	r.Handle("gif", d.Gif)

	// Admin
	r.Handle("stats", d.Stats)
	r.Handle("metrics", d.Metrics)
	r.Handle("workflows", d.Workflows)

	// Catch-alls
	r.HandleChat(d.Chat)
	r.HandleUnknown(d.Unknown)
	r.HandleEcho(d.Echo)
	r.HandleCallback(d.Callback)
}

// Descriptions is the command menu published to Telegram clients at startup.
// Catch-all routes have no menu entry.
var Descriptions = map[string]string{
	"start":     "Start the bot",
	"help":      "Show available commands",
	"status":    "Show bot status",
	"ask":       "Ask the AI a question",
	"explain":   "Explain a concept simply",
	"code":      "Get coding help",
	"summarize": "Summarize text",
	"clear":     "Clear conversation history",
	"tts":       "Convert text to speech",
	"generate":  "Generate an image",
	"lights":    "Control the lights",
	"scene":     "Activate a scene",
	"temp":      "Read or set the thermostat",
	"home":      "Smart home overview",
	"tesla":     "Vehicle status",
	"climate":   "Vehicle climate control",
	"charge":    "Charging status and control",
	"stock":     "Stock quote",
	"crypto":    "Crypto price",
	"market":    "Market overview",
	"news":      "Top headlines",
	"feeds":     "Latest from RSS subscriptions",
	"note":      "Save a note",
	"notes":     "List saved notes",
	"search":    "Search notes",
	"joke":      "Tell a joke",
	"fact":      "Random fact",
	"meme":      "Fetch a meme",
	"gif":       "Random GIF by tag",
	"stats":     "Usage statistics (admin)",
	"metrics":   "Bot counters snapshot (admin)",
	"workflows": "List automation workflows (admin)",
}

// typing fires the transient typing indicator, ignoring delivery errors.
func typing(ctx context.Context, req *bot.Request) {
	if req.Responder != nil {
		_ = req.Responder.Typing(ctx)
	}
}
