package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/remote"
	"github.com/tbourn/recur-sync/internal/repo"
)

// ---------- test helpers ----------

func newQueueDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:syncq_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	require.NoError(t, repo.AutoMigrate(db), "automigrate")
	return db
}

// stepClock returns strictly increasing times so enqueue order is
// reflected in timestamps.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}

func quietLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeRemote records every remote call as "<type> <entity>[ <id>]" and
// answers with hook (nil = success).
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	hook  func(op string) error
}

func (f *fakeRemote) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	h := f.hook
	f.mu.Unlock()
	if h != nil {
		return h(op)
	}
	return nil
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) setHook(h func(op string) error) {
	f.mu.Lock()
	f.hook = h
	f.mu.Unlock()
}

func (f *fakeRemote) services() RemoteServices {
	return RemoteServices{
		Subscriptions: fakeSubs{f},
		Categories:    fakeCats{f},
		Users:         fakeUsers{f},
	}
}

type fakeSubs struct{ f *fakeRemote }

func (s fakeSubs) Create(_ context.Context, d domain.Subscription) (*domain.Subscription, error) {
	if err := s.f.record("create subscription"); err != nil {
		return nil, err
	}
	d.ID = "srv-1"
	return &d, nil
}

func (s fakeSubs) Update(_ context.Context, id string, d domain.Subscription) (*domain.Subscription, error) {
	if err := s.f.record("update subscription " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s fakeSubs) Delete(_ context.Context, id string) error {
	return s.f.record("delete subscription " + id)
}

type fakeCats struct{ f *fakeRemote }

func (c fakeCats) Create(_ context.Context, d domain.Category) (*domain.Category, error) {
	if err := c.f.record("create category"); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c fakeCats) Update(_ context.Context, id string, d domain.Category) (*domain.Category, error) {
	if err := c.f.record("update category " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c fakeCats) Delete(_ context.Context, id string) error {
	return c.f.record("delete category " + id)
}

type fakeUsers struct{ f *fakeRemote }

func (u fakeUsers) UpdateProfile(_ context.Context, id string, d domain.UserProfile) (*domain.UserProfile, error) {
	if err := u.f.record("update user " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

// flakyStore wraps a real store and fails selected operations on demand.
type flakyStore struct {
	ActionStore

	mu         sync.Mutex
	failStore  error
	failRemove error
	failList   error
	failClear  error
}

func (s *flakyStore) set(fn func(*flakyStore)) {
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}

func (s *flakyStore) Store(ctx context.Context, a *domain.OfflineAction) error {
	s.mu.Lock()
	err := s.failStore
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.ActionStore.Store(ctx, a)
}

func (s *flakyStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.failRemove
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.ActionStore.Remove(ctx, id)
}

func (s *flakyStore) List(ctx context.Context) ([]domain.OfflineAction, error) {
	s.mu.Lock()
	err := s.failList
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.ActionStore.List(ctx)
}

func (s *flakyStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.failClear
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.ActionStore.Clear(ctx)
}

var errDisk = errors.New("disk I/O error")

func netErr() error {
	return &remote.NetworkError{Op: "PUT /subscriptions/42", Err: errors.New("connection refused")}
}

type queueFixture struct {
	db     *gorm.DB
	store  *flakyStore
	remote *fakeRemote
	q      *SyncQueue
}

func newFixture(t *testing.T, opts QueueOptions) *queueFixture {
	t.Helper()
	db := newQueueDB(t)
	store := &flakyStore{ActionStore: repo.NewOfflineStore(db)}
	fr := &fakeRemote{}
	if opts.Now == nil {
		opts.Now = stepClock()
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return &queueFixture{
		db:     db,
		store:  store,
		remote: fr,
		q:      NewSyncQueue(store, fr.services(), opts),
	}
}

func subUpdate(id, name string, maxRetries int) NewAction {
	return NewAction{
		Type:       domain.ActionUpdate,
		Entity:     domain.EntitySubscription,
		Data:       []byte(fmt.Sprintf(`{"id":%q,"name":%q}`, id, name)),
		MaxRetries: maxRetries,
	}
}
