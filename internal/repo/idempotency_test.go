package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/recur-sync/internal/domain"
)

const testScope = "sync.actions"

func TestGetIdempotency_BlankKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "c1", testScope, "   ", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		ClientID:  "c1",
		Scope:     testScope,
		Key:       "k1",
		ActionID:  "a1",
		Status:    202,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "c1", testScope, "k1", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	rec, err = GetIdempotency(context.Background(), db, "c1", testScope, "missing", now)
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_Success_ScopedPerClient(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	ok := &domain.Idempotency{
		ID:        "ok",
		ClientID:  "c1",
		Scope:     testScope,
		Key:       "k2",
		ActionID:  "a9",
		Status:    202,
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("seed ok: %v", err)
	}

	rec, err := GetIdempotency(context.Background(), db, "c1", testScope, "k2", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if rec.ActionID != "a9" || rec.Status != 202 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := GetIdempotency(context.Background(), db, "other", testScope, "k2", now); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for other client, got %v", err)
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "c9", testScope, "k9", "a9", 202, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ClientID != "c9" || rec.Key != "k9" || rec.ActionID != "a9" || rec.Status != 202 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !(rec.ExpiresAt.After(start) && rec.ExpiresAt.Before(start.Add(2*time.Hour))) {
		t.Fatalf("unexpected ExpiresAt: %v", rec.ExpiresAt)
	}

	if _, err := CreateIdempotency(context.Background(), db, "c9", testScope, "k9", "aX", 202, ttl); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, err := CreateIdempotency(context.Background(), db, "cX", testScope, "kX", "aX", 202, time.Minute)
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	for _, r := range []*domain.Idempotency{
		{ID: "old", ClientID: "c", Scope: testScope, Key: "1", ActionID: "a", Status: 202, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "new", ClientID: "c", Scope: testScope, Key: "2", ActionID: "b", Status: 202, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 1 {
		t.Fatalf("purge n=%d err=%v want 1", n, err)
	}
	if _, err := GetIdempotency(context.Background(), db, "c", testScope, "2", now); err != nil {
		t.Fatalf("fresh record should remain: %v", err)
	}
}
