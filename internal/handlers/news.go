package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/clients/news"
)

// NewsHeadlines handles /news [category].
func (d *Deps) NewsHeadlines(ctx context.Context, req *bot.Request) error {
	if d.News == nil {
		return req.Responder.Reply(ctx, "📰 News is not configured.")
	}
	category := strings.ToLower(bot.Argument(req.Text))
	if category != "" && !validCategory(category) {
		return req.Responder.Reply(ctx,
			"📰 Unknown category. Try one of: "+strings.Join(news.Categories, ", "))
	}
	typing(ctx, req)

	articles, err := d.News.Headlines(ctx, category, 5)
	if err != nil {
		return fmt.Errorf("headlines: %w", err)
	}
	if len(articles) == 0 {
		return req.Responder.Reply(ctx, "📰 No headlines right now. Try again later.")
	}

	label := "Top Headlines"
	if category != "" {
		label = news.CategoryLabel(category) + " Headlines"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📰 %s\n\n", label)
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s (%s)\n%s\n\n", i+1, a.Title, a.Source, a.URL)
	}
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}

// Feeds handles /feeds: latest items across the configured RSS feeds.
func (d *Deps) Feeds(ctx context.Context, req *bot.Request) error {
	if d.News == nil || len(d.FeedURLs) == 0 {
		return req.Responder.Reply(ctx, "📰 No RSS feeds are configured.")
	}
	typing(ctx, req)

	var b strings.Builder
	b.WriteString("📡 RSS Feeds\n")
	for _, u := range d.FeedURLs {
		items, err := d.News.Feed(ctx, u, 3)
		if err != nil {
			// One broken feed should not hide the others.
			fmt.Fprintf(&b, "\n⚠️ %s unavailable\n", u)
			continue
		}
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", items[0].Source)
		for _, it := range items {
			fmt.Fprintf(&b, "• %s\n%s\n", it.Title, it.URL)
		}
	}
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}

func validCategory(c string) bool {
	for _, k := range news.Categories {
		if k == c {
			return true
		}
	}
	return false
}
