package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/http/middleware"
	"github.com/tbourn/recur-sync/internal/repo"
	"github.com/tbourn/recur-sync/internal/services"
)

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// stubRemote answers every remote call with err (nil = success) and
// records calls as "<op> <entity> <id>".
type stubRemote struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (s *stubRemote) hit(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return s.err
}

func (s *stubRemote) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubRemote) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type stubSubs struct{ *stubRemote }

func (s stubSubs) Create(_ context.Context, d domain.Subscription) (*domain.Subscription, error) {
	if err := s.hit("create subscription"); err != nil {
		return nil, err
	}
	d.ID = "srv-1"
	return &d, nil
}

func (s stubSubs) Update(_ context.Context, id string, d domain.Subscription) (*domain.Subscription, error) {
	if err := s.hit("update subscription " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s stubSubs) Delete(_ context.Context, id string) error {
	return s.hit("delete subscription " + id)
}

type stubCats struct{ *stubRemote }

func (s stubCats) Create(_ context.Context, d domain.Category) (*domain.Category, error) {
	if err := s.hit("create category"); err != nil {
		return nil, err
	}
	d.ID = "cat-1"
	return &d, nil
}

func (s stubCats) Update(_ context.Context, id string, d domain.Category) (*domain.Category, error) {
	if err := s.hit("update category " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s stubCats) Delete(_ context.Context, id string) error {
	return s.hit("delete category " + id)
}

type stubUsers struct{ *stubRemote }

func (s stubUsers) UpdateProfile(_ context.Context, id string, d domain.UserProfile) (*domain.UserProfile, error) {
	if err := s.hit("update user " + id); err != nil {
		return nil, err
	}
	return &d, nil
}

// env is a real queue and gateway over an in-memory store, served through
// the middleware the handlers depend on.
type env struct {
	h      *Handlers
	db     *gorm.DB
	queue  *services.SyncQueue
	remote *stubRemote
	router *gin.Engine
}

func newEnv(t *testing.T, online bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	rem := &stubRemote{}
	rs := services.RemoteServices{
		Subscriptions: stubSubs{rem},
		Categories:    stubCats{rem},
		Users:         stubUsers{rem},
	}
	nop := zerolog.Nop()
	q := services.NewSyncQueue(repo.NewOfflineStore(db), rs, services.QueueOptions{
		StartOffline: !online,
		Logger:       &nop,
	})
	t.Cleanup(q.Wait)
	mut := &services.MutationService{Queue: q, Remote: rs}

	h := New(q, mut, Options{DB: db, IdempotencyTTL: time.Hour})

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ClientIdentity("local"),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{
			Scopes: map[string]string{"POST /sync/actions": IdempotencyScopeActions},
		}, func(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, clientID, scope, key, now)
			return err == nil && rec != nil, err
		}),
	)
	r.GET("/sync/status", h.GetSyncStatus)
	r.GET("/sync/actions", h.ListActions)
	r.GET("/sync/actions/:id", h.GetAction)
	r.POST("/sync/actions", h.EnqueueAction)
	r.DELETE("/sync/actions/:id", h.DeleteAction)
	r.DELETE("/sync/actions", h.ClearActions)
	r.POST("/sync/run", h.RunSync)
	r.PUT("/sync/connectivity", h.SetConnectivity)
	r.POST("/subscriptions", h.CreateSubscription)
	r.PUT("/subscriptions/:id", h.UpdateSubscription)
	r.DELETE("/subscriptions/:id", h.DeleteSubscription)
	r.POST("/categories", h.CreateCategory)
	r.PUT("/categories/:id", h.UpdateCategory)
	r.DELETE("/categories/:id", h.DeleteCategory)
	r.PUT("/users/me", h.UpdateProfile)

	return &env{h: h, db: db, queue: q, remote: rem, router: r}
}

func (e *env) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != code {
		t.Fatalf("code = %q; want %q (message %q)", resp.Code, code, resp.Message)
	}
	if resp.RequestID == "" {
		t.Fatalf("error envelope missing request id")
	}
}

func subUpdateAction(id, name string) map[string]any {
	return map[string]any{
		"type":   "update",
		"entity": "subscription",
		"data":   map[string]any{"id": id, "name": name, "amount": 9.99, "currency": "USD"},
	}
}
