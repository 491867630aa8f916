// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatMessage model, which backs the short conversational context fed to
// the assistant on free-text messages.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/domain"
)

// AppendHistory persists one prompt/reply exchange for telegramID.
// On failure, it returns a DB error.
func AppendHistory(ctx context.Context, db *gorm.DB, telegramID int64, prompt, reply, kind string) error {
	m := &domain.ChatMessage{
		TelegramID: telegramID,
		Prompt:     prompt,
		Reply:      reply,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(m).Error
}

// RecentHistory returns up to limit exchanges for telegramID in
// chronological order (oldest first), so the slice can be fed to the
// assistant as conversation context without reshuffling. On DB error, it
// returns the error.
func RecentHistory(ctx context.Context, db *gorm.DB, telegramID int64, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ClearHistory removes all stored exchanges for telegramID. It returns the
// number of deleted rows, or a DB error.
func ClearHistory(ctx context.Context, db *gorm.DB, telegramID int64) (int64, error) {
	res := db.WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		Delete(&domain.ChatMessage{})
	return res.RowsAffected, res.Error
}
