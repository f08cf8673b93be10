// Package domain defines the core persistence models for the offline sync
// queue and the entity payloads it replays against the Recur REST API.
// OfflineAction is mapped with GORM; the entity payloads are plain JSON
// documents shared by the queue, the mutation gateway and the remote client.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType is the kind of deferred mutation.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Valid reports whether t is one of the known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// EntityType is the domain object an action targets.
type EntityType string

const (
	EntitySubscription EntityType = "subscription"
	EntityCategory     EntityType = "category"
	EntityUser         EntityType = "user"
)

// Valid reports whether e is one of the known entity types.
func (e EntityType) Valid() bool {
	switch e {
	case EntitySubscription, EntityCategory, EntityUser:
		return true
	}
	return false
}

// DefaultMaxRetries is the retry ceiling applied when an action is enqueued
// without an explicit one.
const DefaultMaxRetries = 3

// OfflineAction is a durable record of one deferred mutation.
//
// Fields:
//   - ID: time-ordered UUID (v7) assigned at enqueue time.
//   - Type / Entity: which remote operation replays the action.
//   - Data: JSON payload (full object for create/update, {"id": ...} for delete).
//   - Timestamp: creation time (UTC); the processing order key.
//   - RetryCount: failed sync attempts so far; never exceeds MaxRetries.
//   - MaxRetries: per-action ceiling; reaching it drops the action.
//   - LastError: message of the most recent failed attempt.
type OfflineAction struct {
	ID         string          `json:"id"                   gorm:"type:char(36);primaryKey;index:idx_offline_actions_order,priority:2"`
	Type       ActionType      `json:"type"                 gorm:"type:varchar(16);not null;check:type IN ('create','update','delete')"`
	Entity     EntityType      `json:"entity"               gorm:"type:varchar(16);not null;check:entity IN ('subscription','category','user')"`
	Data       json.RawMessage `json:"data"                 gorm:"type:text;not null"`
	Timestamp  time.Time       `json:"timestamp"            gorm:"not null;index:idx_offline_actions_order,priority:1"`
	RetryCount int             `json:"retry_count"          gorm:"not null;default:0"`
	MaxRetries int             `json:"max_retries"          gorm:"not null;default:3"`
	LastError  string          `json:"last_error,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for OfflineAction.
func (OfflineAction) TableName() string { return "offline_actions" }

// EntityID identifies a remote entity. Clients send ids either as JSON
// strings or as JSON numbers; both decode to the same textual form.
type EntityID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *EntityID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EntityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("entity id must be a string or a number: %w", err)
	}
	*id = EntityID(n.String())
	return nil
}

// String returns the id as a plain string.
func (id EntityID) String() string { return string(id) }

// BillingCycle is how often a subscription renews.
type BillingCycle string

const (
	BillingWeekly    BillingCycle = "weekly"
	BillingMonthly   BillingCycle = "monthly"
	BillingQuarterly BillingCycle = "quarterly"
	BillingYearly    BillingCycle = "yearly"
)

// Valid reports whether c is a supported billing cycle.
func (c BillingCycle) Valid() bool {
	switch c {
	case BillingWeekly, BillingMonthly, BillingQuarterly, BillingYearly:
		return true
	}
	return false
}

// Subscription is a recurring charge tracked by the user.
type Subscription struct {
	ID              EntityID     `json:"id,omitempty"`
	Name            string       `json:"name"`
	Amount          float64      `json:"amount"`
	Currency        string       `json:"currency"`
	BillingCycle    BillingCycle `json:"billing_cycle"`
	NextBillingDate string       `json:"next_billing_date,omitempty"`
	CategoryID      EntityID     `json:"category_id,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Active          *bool        `json:"active,omitempty"`
}

// Category groups subscriptions on the dashboard.
type Category struct {
	ID    EntityID `json:"id,omitempty"`
	Name  string   `json:"name"`
	Color string   `json:"color,omitempty"`
}

// UserProfile is the editable part of the signed-in user's account.
type UserProfile struct {
	ID              EntityID `json:"id,omitempty"`
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	DefaultCurrency string   `json:"default_currency,omitempty"`
}

// EntityRef is the payload of a delete action.
type EntityRef struct {
	ID EntityID `json:"id"`
}
