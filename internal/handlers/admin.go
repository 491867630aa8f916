package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/repo"
)

const adminOnly = "🔐 This command is restricted to the bot admin."

// isAdmin reports whether the requesting identity is the configured admin.
func (d *Deps) isAdmin(req *bot.Request) bool {
	return d.AdminID != 0 && req.Identity == d.AdminID
}

// Stats handles /stats: a 24-hour usage report from the activity table.
// Admin only; activity rows cover every user of the bot.
func (d *Deps) Stats(ctx context.Context, req *bot.Request) error {
	if !d.isAdmin(req) {
		return req.Responder.Reply(ctx, adminOnly)
	}
	if d.DB == nil {
		return req.Responder.Reply(ctx, "📊 No activity database is configured.")
	}
	typing(ctx, req)

	since := time.Now().UTC().Add(-24 * time.Hour)
	sum, err := repo.ActivityStats(ctx, d.DB, since)
	if err != nil {
		return fmt.Errorf("activity stats: %w", err)
	}
	top, err := repo.TopCommands(ctx, d.DB, since, 5)
	if err != nil {
		return fmt.Errorf("top commands: %w", err)
	}
	users, err := repo.CountUsers(ctx, d.DB)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	var b strings.Builder
	b.WriteString("📊 Last 24 Hours\n\n")
	fmt.Fprintf(&b, "• Commands dispatched: %d\n", sum.Total)
	fmt.Fprintf(&b, "• Failed: %d\n", sum.Failed)
	fmt.Fprintf(&b, "• Active users: %d (of %d known)\n", sum.ActiveUsers, users)
	if len(top) > 0 {
		b.WriteString("\n🏆 Top commands:\n")
		for _, t := range top {
			fmt.Fprintf(&b, "• /%s — %d\n", t.Command, t.Count)
		}
	}
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}

// Metrics handles /metrics: a snapshot of the bot's own counters, summed
// across labels. Admin only; the full Prometheus exposition stays on the
// HTTP endpoint.
func (d *Deps) Metrics(ctx context.Context, req *bot.Request) error {
	if !d.isAdmin(req) {
		return req.Responder.Reply(ctx, adminOnly)
	}
	fams, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var b strings.Builder
	b.WriteString("📈 Bot Metrics\n\n")
	for _, fam := range fams {
		name := fam.GetName()
		if !strings.HasPrefix(name, "telegram_bot_") {
			continue
		}
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		label := strings.TrimSuffix(strings.TrimPrefix(name, "telegram_bot_"), "_total")
		fmt.Fprintf(&b, "• %s: %.0f\n", strings.ReplaceAll(label, "_", " "), total)
	}
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}

// Workflows handles /workflows: lists the automation workflows registered
// in the n8n instance, or triggers one with "run <id>". Admin only.
func (d *Deps) Workflows(ctx context.Context, req *bot.Request) error {
	if !d.isAdmin(req) {
		return req.Responder.Reply(ctx, adminOnly)
	}
	if d.N8N == nil || !d.N8N.Enabled() {
		return req.Responder.Reply(ctx, "⚙️ Workflow automation is not configured.")
	}
	typing(ctx, req)

	if id, ok := strings.CutPrefix(bot.Argument(req.Text), "run "); ok {
		id = strings.TrimSpace(id)
		if id == "" {
			return req.Responder.Reply(ctx, "Usage: /workflows run <id>")
		}
		if err := d.N8N.ExecuteWorkflow(ctx, id, nil); err != nil {
			return fmt.Errorf("execute workflow %s: %w", id, err)
		}
		return req.Responder.Reply(ctx, fmt.Sprintf("▶️ Workflow %s started.", id))
	}

	wfs, err := d.N8N.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("list workflows: %w", err)
	}
	if len(wfs) == 0 {
		return req.Responder.Reply(ctx, "⚙️ No workflows found.")
	}

	var b strings.Builder
	b.WriteString("⚙️ Workflows\n\n")
	for _, wf := range wfs {
		state := "⏸️"
		if wf.Active {
			state = "▶️"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", state, wf.Name, wf.ID)
	}
	b.WriteString("\nRun one: /workflows run <id>")
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}
