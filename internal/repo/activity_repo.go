// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ActivityRecord model and the aggregate queries behind the /stats report.
//
// Error semantics:
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - InsertActivity(ctx, db, rec) -> error
//     Inserts one dispatched-command outcome row.
//
//   - ActivityStats(ctx, db, since) -> (*ActivitySummary, error)
//     Returns aggregate counts for the period starting at since.
//
//   - TopCommands(ctx, db, since, limit) -> []CommandCount, error
//     Returns the most used commands for the period, busiest first.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/domain"
)

// ActivitySummary holds aggregate counts over a time window.
type ActivitySummary struct {
	Total       int64
	Failed      int64
	ActiveUsers int64
}

// CommandCount pairs a command name with its usage count.
type CommandCount struct {
	Command string
	Count   int64
}

// InsertActivity persists one ActivityRecord row. CreatedAt is set to UTC
// when the caller left it zero. On failure, it returns a DB error.
func InsertActivity(ctx context.Context, db *gorm.DB, rec *domain.ActivityRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// ActivityStats returns aggregate metadata for activity since the given
// time: total dispatched commands, how many of them failed, and the number
// of distinct identities seen. When there is no activity, all counts are 0.
func ActivityStats(ctx context.Context, db *gorm.DB, since time.Time) (*ActivitySummary, error) {
	var s ActivitySummary
	q := db.WithContext(ctx).
		Model(&domain.ActivityRecord{}).
		Where("created_at >= ?", since)

	if err := q.Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if s.Total == 0 {
		return &s, nil
	}

	if err := q.Where("success = ?", false).Count(&s.Failed).Error; err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).
		Model(&domain.ActivityRecord{}).
		Where("created_at >= ?", since).
		Distinct("telegram_id").
		Count(&s.ActiveUsers).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TopCommands returns up to limit commands ordered by usage count descending
// for activity since the given time. It returns an empty slice when there is
// no activity. On DB error, it returns the error.
func TopCommands(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]CommandCount, error) {
	var out []CommandCount
	err := db.WithContext(ctx).
		Model(&domain.ActivityRecord{}).
		Select("command, count(*) as count").
		Where("created_at >= ?", since).
		Group("command").
		Order("count desc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
