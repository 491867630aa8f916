package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alkaitz/telepilot/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestOpenSQLite_ErrorOnBadParentDir(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "app.db")
	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
}

func TestOpenSQLite_AutoMigrateCreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range []any{&domain.User{}, &domain.ActivityRecord{}, &domain.Note{}, &domain.ChatMessage{}} {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}
}

func TestTouchUser_UpsertRefreshesProfile(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if err := TouchUser(ctx, db, 42, "alice", "Alice"); err != nil {
		t.Fatalf("TouchUser: %v", err)
	}
	if err := TouchUser(ctx, db, 42, "alice_renamed", "Alice"); err != nil {
		t.Fatalf("TouchUser (second): %v", err)
	}

	var u domain.User
	if err := db.First(&u, "telegram_id = ?", 42).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Username != "alice_renamed" {
		t.Fatalf("username not refreshed: %+v", u)
	}

	total, err := CountUsers(ctx, db)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected single row after upsert, got %d", total)
	}
}

func TestInsertActivity_AndStats(t *testing.T) {
	db := newTestDB(t, &domain.ActivityRecord{})
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []struct {
		user    int64
		command string
		success bool
		at      time.Time
	}{
		{1, "ask", true, now.Add(-time.Minute)},
		{1, "ask", true, now.Add(-2 * time.Minute)},
		{2, "weather", false, now.Add(-3 * time.Minute)},
		{2, "ask", true, now.Add(-48 * time.Hour)}, // outside the window
	}
	for _, s := range seed {
		rec := &domain.ActivityRecord{
			TelegramID: s.user,
			Command:    s.command,
			Success:    s.success,
			CreatedAt:  s.at,
		}
		if err := InsertActivity(ctx, db, rec); err != nil {
			t.Fatalf("InsertActivity: %v", err)
		}
	}

	sum, err := ActivityStats(ctx, db, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ActivityStats: %v", err)
	}
	if sum.Total != 3 || sum.Failed != 1 || sum.ActiveUsers != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	top, err := TopCommands(ctx, db, now.Add(-24*time.Hour), 5)
	if err != nil {
		t.Fatalf("TopCommands: %v", err)
	}
	if len(top) != 2 || top[0].Command != "ask" || top[0].Count != 2 {
		t.Fatalf("unexpected top commands: %+v", top)
	}
}

func TestActivityStats_EmptyWindow(t *testing.T) {
	db := newTestDB(t, &domain.ActivityRecord{})
	sum, err := ActivityStats(context.Background(), db, time.Now().UTC())
	if err != nil {
		t.Fatalf("ActivityStats: %v", err)
	}
	if sum.Total != 0 || sum.Failed != 0 || sum.ActiveUsers != 0 {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}

func TestCreateNote_SetsFieldsAndRoundTrips(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	n, err := CreateNote(ctx, db, 7, "groceries", "milk, eggs")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if n.ID == "" || n.TelegramID != 7 || n.Title != "groceries" {
		t.Fatalf("unexpected Note fields: %+v", n)
	}

	got, err := GetNote(ctx, db, n.ID, 7)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Body != "milk, eggs" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGetNote_EnforcesOwnership(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	n, err := CreateNote(ctx, db, 7, "private", "")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := GetNote(ctx, db, n.ID, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}
}

func TestListNotesPage_PaginatesNewestFirst(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		n := &domain.Note{
			ID:         fmt.Sprintf("note-%d", i),
			TelegramID: 7,
			Title:      fmt.Sprintf("note %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.Create(n).Error; err != nil {
			t.Fatalf("seed note: %v", err)
		}
	}

	total, err := CountNotes(ctx, db, 7)
	if err != nil || total != 5 {
		t.Fatalf("CountNotes = %d, %v", total, err)
	}

	page, err := ListNotesPage(ctx, db, 7, 2, 2)
	if err != nil {
		t.Fatalf("ListNotesPage: %v", err)
	}
	if len(page) != 2 || page[0].Title != "note 2" || page[1].Title != "note 1" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestSearchNotes_MatchesTitleOrBody(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	if _, err := CreateNote(ctx, db, 7, "shopping list", "buy milk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateNote(ctx, db, 7, "ideas", "milk delivery startup"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateNote(ctx, db, 7, "unrelated", "nothing here"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := SearchNotes(ctx, db, 7, "milk", 10)
	if err != nil {
		t.Fatalf("SearchNotes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
}

func TestDeleteNote_NotFoundAndSuccess(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	if err := DeleteNote(ctx, db, "missing", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := CreateNote(ctx, db, 7, "temp", "")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := DeleteNote(ctx, db, n.ID, 7); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := GetNote(ctx, db, n.ID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("note still visible after delete")
	}
}

func TestHistory_AppendRecentAndClear(t *testing.T) {
	db := newTestDB(t, &domain.ChatMessage{})
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		m := &domain.ChatMessage{
			TelegramID: 7,
			Prompt:     fmt.Sprintf("q%d", i),
			Reply:      fmt.Sprintf("a%d", i),
			Kind:       "text",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	got, err := RecentHistory(ctx, db, 7, 3)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 3 || got[0].Prompt != "q1" || got[2].Prompt != "q3" {
		t.Fatalf("expected chronological tail [q1 q2 q3], got %+v", got)
	}

	deleted, err := ClearHistory(ctx, db, 7)
	if err != nil || deleted != 4 {
		t.Fatalf("ClearHistory = %d, %v", deleted, err)
	}
	got, err = RecentHistory(ctx, db, 7, 3)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty history after clear, got %+v (%v)", got, err)
	}
}
