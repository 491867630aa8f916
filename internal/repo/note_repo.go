// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Note model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a note is not found, functions return gorm.ErrRecordNotFound
//     (also exported in this package as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateNote(ctx, db, telegramID, title, body) -> *domain.Note, error
//     Inserts a new Note row with UUID primary key and UTC timestamp.
//
//   - CountNotes(ctx, db, telegramID) -> (int64, error)
//     Returns the total number of notes owned by the user.
//
//   - ListNotesPage(ctx, db, telegramID, offset, limit) -> []domain.Note, error
//     Returns a paginated slice of notes for a user, newest first.
//
//   - SearchNotes(ctx, db, telegramID, query, limit) -> []domain.Note, error
//     Returns notes whose title or body matches the query, newest first.
//
//   - GetNote(ctx, db, id, telegramID) -> *domain.Note, error
//     Fetches a single note by ID, enforcing user ownership.
//
//   - DeleteNote(ctx, db, id, telegramID) -> error
//     Soft-deletes a note, enforcing user ownership.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/domain"
)

// CreateNote inserts a new Note row owned by telegramID with the given title
// and body. The note ID is a randomly generated UUID (string), and CreatedAt
// is set to UTC.
//
// On success, it returns the persisted Note. On failure, it returns a DB error.
func CreateNote(ctx context.Context, db *gorm.DB, telegramID int64, title, body string) (*domain.Note, error) {
	n := &domain.Note{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		Title:      title,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// CountNotes returns the total number of notes owned by telegramID.
// On DB error, it returns the error.
func CountNotes(ctx context.Context, db *gorm.DB, telegramID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Note{}).
		Where("telegram_id = ?", telegramID).
		Count(&total).Error
	return total, err
}

// ListNotesPage returns a paginated slice of notes for telegramID, ordered by
// creation time descending. Use CountNotes to obtain the total for pagination
// metadata. On DB error, it returns the error.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListNotesPage(ctx context.Context, db *gorm.DB, telegramID int64, offset, limit int) ([]domain.Note, error) {
	var out []domain.Note
	err := db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchNotes returns up to limit notes owned by telegramID whose title or
// body contains query (case-insensitive substring match), newest first.
// It returns an empty slice when nothing matches. On DB error, it returns
// the error.
func SearchNotes(ctx context.Context, db *gorm.DB, telegramID int64, query string, limit int) ([]domain.Note, error) {
	var out []domain.Note
	pattern := "%" + query + "%"
	err := db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		Where("title LIKE ? OR body LIKE ?", pattern, pattern).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetNote fetches a single note by its ID and owner (telegramID). If the
// record does not exist, it returns ErrNotFound. On other DB errors, the raw
// error is returned.
func GetNote(ctx context.Context, db *gorm.DB, id string, telegramID int64) (*domain.Note, error) {
	var n domain.Note
	err := db.WithContext(ctx).
		Where("id = ? AND telegram_id = ?", id, telegramID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote soft-deletes a note identified by id and owned by telegramID.
// If no rows are affected (note missing or not owned by telegramID), it
// returns ErrNotFound. On DB error, the raw error is returned.
func DeleteNote(ctx context.Context, db *gorm.DB, id string, telegramID int64) error {
	res := db.WithContext(ctx).
		Where("id = ? AND telegram_id = ?", id, telegramID).
		Delete(&domain.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
