package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/repo"
	"github.com/alkaitz/telepilot/internal/utils"
)

const notesPageSize = 5

const notesUnconfigured = "📚 Notes are not configured."

// NoteSave handles /note [title: body]. Text without a colon becomes a note
// whose title is the first line.
func (d *Deps) NoteSave(ctx context.Context, req *bot.Request) error {
	if d.DB == nil {
		return req.Responder.Reply(ctx, notesUnconfigured)
	}
	text := bot.Argument(req.Text)
	if text == "" {
		return req.Responder.Reply(ctx, "📚 What should I note down? Usage: /note [title: body]")
	}

	title, body := splitNote(text)
	n, err := repo.CreateNote(ctx, d.DB, req.Identity, title, body)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return req.Responder.Reply(ctx, fmt.Sprintf("📚 Saved '%s'. You have it forever now.", n.Title))
}

// NoteList handles /notes [page].
func (d *Deps) NoteList(ctx context.Context, req *bot.Request) error {
	if d.DB == nil {
		return req.Responder.Reply(ctx, notesUnconfigured)
	}
	total, err := repo.CountNotes(ctx, d.DB, req.Identity)
	if err != nil {
		return fmt.Errorf("count notes: %w", err)
	}
	if total == 0 {
		return req.Responder.Reply(ctx, "📚 No notes yet. Save one with /note [title: body]")
	}

	page := utils.Paginate(utils.AtoiDefault(bot.Argument(req.Text), 1), notesPageSize, total)
	notes, err := repo.ListNotesPage(ctx, d.DB, req.Identity, page.Offset, page.Size)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 Your Notes (page %d/%d, %d total)\n\n", page.Number, page.Pages, page.Total)
	for _, n := range notes {
		fmt.Fprintf(&b, "• %s — %s\n", n.Title, n.CreatedAt.Format("Jan 2"))
		if n.Body != "" {
			fmt.Fprintf(&b, "  %s\n", clipText(n.Body, 80))
		}
	}
	if page.Number < page.Pages {
		fmt.Fprintf(&b, "\nNext page: /notes %d", page.Number+1)
	}
	return req.Responder.Reply(ctx, strings.TrimSpace(b.String()))
}

// NoteSearch handles /search [query].
func (d *Deps) NoteSearch(ctx context.Context, req *bot.Request) error {
	if d.DB == nil {
		return req.Responder.Reply(ctx, notesUnconfigured)
	}
	query := bot.Argument(req.Text)
	if query == "" {
		return req.Responder.Reply(ctx, "📚 What should I look for? Usage: /search [query]")
	}

	notes, err := repo.SearchNotes(ctx, d.DB, req.Identity, query, 10)
	if err != nil {
		return fmt.Errorf("search notes: %w", err)
	}
	if len(notes) == 0 {
		return req.Responder.Reply(ctx, fmt.Sprintf("📚 Nothing matched '%s'.", query))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Notes matching '%s'\n\n", query)
	rows := make([][]bot.Button, 0, len(notes))
	for _, n := range notes {
		fmt.Fprintf(&b, "• %s — %s\n", n.Title, n.CreatedAt.Format("Jan 2"))
		rows = append(rows, []bot.Button{{
			Label:  "🗑 " + clipText(n.Title, 24),
			Action: "delnote:" + n.ID,
		}})
	}
	return req.Responder.ReplyKeyboard(ctx, strings.TrimSpace(b.String()), rows)
}

// deleteNote services the delete buttons attached to search results. The
// ownership check lives in the repo layer; another identity's note id
// behaves like a missing note.
func (d *Deps) deleteNote(ctx context.Context, req *bot.Request, id string) error {
	if d.DB == nil {
		return req.Responder.Reply(ctx, notesUnconfigured)
	}
	n, err := repo.GetNote(ctx, d.DB, id, req.Identity)
	if errors.Is(err, repo.ErrNotFound) {
		return req.Responder.Reply(ctx, "📚 That note is already gone.")
	}
	if err != nil {
		return fmt.Errorf("load note: %w", err)
	}
	if err := repo.DeleteNote(ctx, d.DB, id, req.Identity); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("delete note: %w", err)
	}
	return req.Responder.Reply(ctx, fmt.Sprintf("🗑 Deleted '%s'.", n.Title))
}

// splitNote derives title and body from raw note text. "title: body" splits
// on the first colon; otherwise the first line is the title.
func splitNote(text string) (title, body string) {
	if i := strings.Index(text, ":"); i > 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	if i := strings.IndexByte(text, '\n'); i > 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	return clipText(text, 60), ""
}

func clipText(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
