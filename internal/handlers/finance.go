package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/alkaitz/telepilot/internal/bot"
)

const financeUnconfigured = "💸 Market data is not configured."

// Stock handles /stock [symbol].
func (d *Deps) Stock(ctx context.Context, req *bot.Request) error {
	if d.Market == nil {
		return req.Responder.Reply(ctx, financeUnconfigured)
	}
	symbol := bot.Argument(req.Text)
	if symbol == "" {
		return req.Responder.Reply(ctx, "💸 Which stock? Usage: /stock AAPL")
	}
	typing(ctx, req)

	q, err := d.Market.Stock(ctx, symbol)
	if err != nil {
		return fmt.Errorf("stock quote %s: %w", symbol, err)
	}
	arrow := "📈"
	if q.Change < 0 {
		arrow = "📉"
	}
	return req.Responder.Reply(ctx, fmt.Sprintf(
		"%s %s\n\n💵 $%.2f (%+.2f, %s)\n📊 Volume: %d\n🗓️ %s",
		arrow, q.Symbol, q.Price, q.Change, q.ChangePercent, q.Volume, q.TradingDay))
}

// Crypto handles /crypto [coin].
func (d *Deps) Crypto(ctx context.Context, req *bot.Request) error {
	if d.Market == nil {
		return req.Responder.Reply(ctx, financeUnconfigured)
	}
	coin := bot.Argument(req.Text)
	if coin == "" {
		return req.Responder.Reply(ctx, "💸 Which coin? Usage: /crypto bitcoin")
	}
	typing(ctx, req)

	q, err := d.Market.Crypto(ctx, coin)
	if err != nil {
		return fmt.Errorf("crypto quote %s: %w", coin, err)
	}
	arrow := "📈"
	if q.Change24h < 0 {
		arrow = "📉"
	}
	return req.Responder.Reply(ctx, fmt.Sprintf(
		"%s %s\n\n💵 $%s (%+.2f%% 24h)\n🏦 Market cap: $%s\n📊 24h volume: $%s",
		arrow, strings.ToUpper(q.ID), humanize(q.PriceUSD), q.Change24h,
		humanize(q.MarketCap), humanize(q.Volume24h)))
}

// MarketOverview handles /market with the fixed coin basket.
func (d *Deps) MarketOverview(ctx context.Context, req *bot.Request) error {
	if d.Market == nil {
		return req.Responder.Reply(ctx, financeUnconfigured)
	}
	typing(ctx, req)

	quotes, err := d.Market.Overview(ctx)
	if err != nil {
		return fmt.Errorf("market overview: %w", err)
	}
	var b strings.Builder
	b.WriteString("🌍 Market Overview\n\n")
	for _, q := range quotes {
		arrow := "📈"
		if q.Change24h < 0 {
			arrow = "📉"
		}
		fmt.Fprintf(&b, "%s %s: $%s (%+.2f%%)\n", arrow, strings.ToUpper(q.ID), humanize(q.PriceUSD), q.Change24h)
	}
	return req.Responder.Reply(ctx, b.String())
}

// humanize renders a dollar amount with a magnitude suffix above 1M.
func humanize(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}
