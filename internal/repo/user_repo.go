// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alkaitz/telepilot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// TouchUser upserts the profile row for telegramID and stamps LastSeenAt.
// Username and first name are refreshed on every call so the stored profile
// tracks renames. Conflicts resolve on the telegram_id unique index.
func TouchUser(ctx context.Context, db *gorm.DB, telegramID int64, username, firstName string) error {
	now := time.Now().UTC()
	u := &domain.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastSeenAt: now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_seen_at", "updated_at"}),
		}).
		Create(u).Error
}

// CountUsers returns the total number of known users.
// On DB error, it returns the error.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Count(&total).Error
	return total, err
}
