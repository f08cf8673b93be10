// Package repo implements the data persistence layer for the offline queue,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/recur-sync/internal/domain"
)

// OfflineActionStats returns the number of stored actions and the newest
// action timestamp. When the queue is empty the count is 0 and newest is nil.
//
// Retry bookkeeping does not move the timestamp, so the pair alone misses
// in-place updates; callers mix in the summed retry count from RetryTotal.
func OfflineActionStats(ctx context.Context, db *gorm.DB) (count int64, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.OfflineAction{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		Timestamp time.Time
	}
	if err = q.Select("timestamp").Order("timestamp DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}

// RetryTotal returns the sum of retry_count over all stored actions.
func RetryTotal(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.OfflineAction{}).
		Select("COALESCE(SUM(retry_count), 0)").
		Scan(&total).Error
	return total, err
}
