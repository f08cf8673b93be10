package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/remote"
)

func netflix() map[string]any {
	return map[string]any{"name": "Netflix", "amount": 15.49, "currency": "usd", "billing_cycle": "Monthly"}
}

func TestCreateSubscription_OnlineApplied(t *testing.T) {
	e := newEnv(t, true)
	w := e.do(t, http.MethodPost, "/subscriptions", netflix())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	sub := decode[domain.Subscription](t, w)
	if sub.ID != "srv-1" || sub.Currency != "USD" || sub.BillingCycle != domain.BillingMonthly {
		t.Fatalf("expected normalized remote result, got %+v", sub)
	}
	if e.queue.PendingCount() != 0 {
		t.Fatalf("applied mutation must not be queued")
	}
}

func TestCreateSubscription_OfflineQueued(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodPost, "/subscriptions", netflix())
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	a := decode[domain.OfflineAction](t, w)
	if a.Type != domain.ActionCreate || a.Entity != domain.EntitySubscription || a.ID == "" {
		t.Fatalf("unexpected queued action: %+v", a)
	}
	if len(e.remote.Calls()) != 0 {
		t.Fatalf("offline mutation must not reach the remote")
	}
	if e.queue.PendingCount() != 1 {
		t.Fatalf("pending = %d", e.queue.PendingCount())
	}
}

func TestUpdateSubscription_NetworkErrorQueues(t *testing.T) {
	e := newEnv(t, true)
	e.remote.setErr(&remote.NetworkError{Op: "PUT /subscriptions/42", Err: errors.New("connection refused")})

	w := e.do(t, http.MethodPut, "/subscriptions/42", netflix())
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	a := decode[domain.OfflineAction](t, w)
	if a.Type != domain.ActionUpdate {
		t.Fatalf("unexpected action: %+v", a)
	}
	if !e.queue.IsOnline() {
		t.Fatalf("the gateway must not flip connectivity")
	}
}

func TestUpdateSubscription_RemoteRejections(t *testing.T) {
	e := newEnv(t, true)

	e.remote.setErr(&remote.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "no such subscription"})
	expectError(t, e.do(t, http.MethodPut, "/subscriptions/42", netflix()), http.StatusNotFound, ErrCodeRemoteRejected)

	e.remote.setErr(&remote.APIError{Status: http.StatusInternalServerError, Message: "boom"})
	expectError(t, e.do(t, http.MethodPut, "/subscriptions/42", netflix()), http.StatusBadGateway, ErrCodeRemoteError)

	if e.queue.PendingCount() != 0 {
		t.Fatalf("rejected mutations must not be queued")
	}
}

func TestMutation_ValidationErrors(t *testing.T) {
	e := newEnv(t, true)

	bad := netflix()
	bad["currency"] = "DOLLARS"
	expectError(t, e.do(t, http.MethodPost, "/subscriptions", bad), http.StatusBadRequest, ErrCodeInvalidPayload)
	expectError(t, e.do(t, http.MethodPost, "/subscriptions", "[1,2"), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, e.do(t, http.MethodPost, "/categories", map[string]any{"name": "Video", "color": "red"}), http.StatusBadRequest, ErrCodeInvalidPayload)
	expectError(t, e.do(t, http.MethodPut, "/users/me", map[string]any{"email": "not-an-email"}), http.StatusBadRequest, ErrCodeInvalidPayload)

	if len(e.remote.Calls()) != 0 {
		t.Fatalf("invalid requests must not reach the remote: %v", e.remote.Calls())
	}
}

func TestCategoryAndProfileMutations(t *testing.T) {
	e := newEnv(t, true)

	w := e.do(t, http.MethodPost, "/categories", map[string]any{"name": "Video", "color": "#FF0000"})
	if w.Code != http.StatusOK || decode[domain.Category](t, w).Color != "#ff0000" {
		t.Fatalf("create category: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPut, "/categories/7", map[string]any{"name": "Music"}); w.Code != http.StatusOK {
		t.Fatalf("update category: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodDelete, "/categories/7", nil)
	if w.Code != http.StatusOK || decode[domain.EntityRef](t, w).ID != "7" {
		t.Fatalf("delete category: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodDelete, "/subscriptions/9", nil); w.Code != http.StatusOK {
		t.Fatalf("delete subscription: %d", w.Code)
	}
	w = e.do(t, http.MethodPut, "/users/me", map[string]any{"name": "Ana", "default_currency": "eur"})
	if w.Code != http.StatusOK || decode[domain.UserProfile](t, w).DefaultCurrency != "EUR" {
		t.Fatalf("update profile: %d %s", w.Code, w.Body.String())
	}

	want := []string{"create category", "update category 7", "delete category 7", "delete subscription 9", "update user "}
	got := e.remote.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestDeleteCategory_OfflineQueuesRef(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodDelete, "/categories/7", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	a := decode[domain.OfflineAction](t, w)
	if a.Type != domain.ActionDelete || a.Entity != domain.EntityCategory || string(a.Data) != `{"id":"7"}` {
		t.Fatalf("unexpected action: %+v data=%s", a, a.Data)
	}
}
