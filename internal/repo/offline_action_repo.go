// Package repo implements the data persistence layer for the offline queue,
// backed by GORM. This file provides the durable store for OfflineAction
// records.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no retry or ordering policy lives here, only persistence.
//
// Functions:
//
//   - StoreOfflineAction(ctx, db, action) -> error
//     Inserts or fully replaces the row with the action's ID.
//
//   - RemoveOfflineAction(ctx, db, id) -> error
//     Deletes by ID. Removing a missing ID is not an error.
//
//   - GetOfflineActions(ctx, db) -> []domain.OfflineAction, error
//     Returns every stored action ordered by (timestamp, id).
//
//   - ClearOfflineActions(ctx, db) -> error
//     Deletes every stored action.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/recur-sync/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience.
var ErrNotFound = gorm.ErrRecordNotFound

// StoreOfflineAction upserts a full action row keyed by ID.
func StoreOfflineAction(ctx context.Context, db *gorm.DB, a *domain.OfflineAction) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(a).Error
}

// RemoveOfflineAction deletes the action with the given ID.
func RemoveOfflineAction(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.OfflineAction{}).Error
}

// GetOfflineActions returns every stored action in processing order.
func GetOfflineActions(ctx context.Context, db *gorm.DB) ([]domain.OfflineAction, error) {
	var out []domain.OfflineAction
	err := db.WithContext(ctx).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetOfflineAction fetches one action by ID, or ErrNotFound.
func GetOfflineAction(ctx context.Context, db *gorm.DB, id string) (*domain.OfflineAction, error) {
	var a domain.OfflineAction
	if err := db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ClearOfflineActions deletes every stored action.
func ClearOfflineActions(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.OfflineAction{}).Error
}

// CountOfflineActions returns the number of stored actions.
func CountOfflineActions(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.OfflineAction{}).Count(&n).Error
	return n, err
}

// OfflineStore adapts the package functions to the queue's storage port.
type OfflineStore struct {
	DB *gorm.DB
}

// NewOfflineStore wraps db.
func NewOfflineStore(db *gorm.DB) *OfflineStore { return &OfflineStore{DB: db} }

// Store persists a (possibly updated) action.
func (s *OfflineStore) Store(ctx context.Context, a *domain.OfflineAction) error {
	return StoreOfflineAction(ctx, s.DB, a)
}

// Remove deletes an action by ID.
func (s *OfflineStore) Remove(ctx context.Context, id string) error {
	return RemoveOfflineAction(ctx, s.DB, id)
}

// List returns all actions ordered by (timestamp, id).
func (s *OfflineStore) List(ctx context.Context) ([]domain.OfflineAction, error) {
	return GetOfflineActions(ctx, s.DB)
}

// Clear deletes every action.
func (s *OfflineStore) Clear(ctx context.Context) error {
	return ClearOfflineActions(ctx, s.DB)
}
