package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/remote"
)

func newGateway(t *testing.T, opts QueueOptions) (*MutationService, *queueFixture) {
	t.Helper()
	fx := newFixture(t, opts)
	return &MutationService{Queue: fx.q, Remote: fx.remote.services()}, fx
}

func TestMutation_OnlineAppliesDirectly(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{})
	ctx := context.Background()

	res, err := svc.CreateSubscription(ctx, domain.Subscription{
		Name: "  Netflix  ", Amount: 15.99, Currency: "usd", BillingCycle: "Monthly",
	})
	require.NoError(t, err)
	require.False(t, res.Queued)
	require.Nil(t, res.Action)
	require.Equal(t, domain.EntityID("srv-1"), res.Value.ID)
	require.Equal(t, "Netflix", res.Value.Name)
	require.Equal(t, "USD", res.Value.Currency)
	require.Equal(t, domain.BillingMonthly, res.Value.BillingCycle)

	require.Equal(t, []string{"create subscription"}, fx.remote.Calls())
	require.Equal(t, 0, fx.q.PendingCount())
}

func TestMutation_OfflineEnqueues(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{StartOffline: true})
	ctx := context.Background()

	res, err := svc.UpdateSubscription(ctx, "42", domain.Subscription{Name: "Netflix Premium", Amount: 19.99, Currency: "EUR"})
	require.NoError(t, err)
	require.True(t, res.Queued)
	require.Nil(t, res.Value)
	require.Equal(t, domain.ActionUpdate, res.Action.Type)
	require.Equal(t, domain.EntitySubscription, res.Action.Entity)

	var payload domain.Subscription
	require.NoError(t, json.Unmarshal(res.Action.Data, &payload))
	require.Equal(t, domain.EntityID("42"), payload.ID)
	require.Equal(t, "Netflix Premium", payload.Name)

	require.Empty(t, fx.remote.Calls())
	require.Equal(t, 1, fx.q.PendingCount())
}

func TestMutation_NetworkErrorEnqueues_QueueStaysOnline(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{})
	ctx := context.Background()
	fx.remote.setHook(func(string) error { return netErr() })

	res, err := svc.DeleteCategory(ctx, "7")
	require.NoError(t, err)
	require.True(t, res.Queued)
	require.JSONEq(t, `{"id":"7"}`, string(res.Action.Data))
	require.Equal(t, 1, fx.q.PendingCount())
	require.True(t, fx.q.IsOnline(), "connectivity is owned by the monitor")

	// Replays once the remote recovers.
	fx.remote.setHook(nil)
	report, err := fx.q.SyncPendingActions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, []string{"delete category 7", "delete category 7"}, fx.remote.Calls())
}

func TestMutation_APIErrorPropagates(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{})
	apiErr := &remote.APIError{Status: 422, Code: "invalid", Message: "duplicate name"}
	fx.remote.setHook(func(string) error { return apiErr })

	res, err := svc.CreateCategory(context.Background(), domain.Category{Name: "Streaming"})
	require.Nil(t, res)
	var got *remote.APIError
	require.True(t, errors.As(err, &got))
	require.Equal(t, 422, got.Status)
	require.Equal(t, 0, fx.q.PendingCount())
}

func TestMutation_ValidationRejectedBeforeAnyCall(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{})
	ctx := context.Background()

	_, err := svc.CreateSubscription(ctx, domain.Subscription{Name: "x", Amount: -1, Currency: "USD"})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.CreateSubscription(ctx, domain.Subscription{Name: "x", Amount: 1, Currency: "ZZZ"})
	require.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = svc.UpdateCategory(ctx, "", domain.Category{Name: "x"})
	require.ErrorIs(t, err, ErrMissingID)
	_, err = svc.DeleteSubscription(ctx, "")
	require.ErrorIs(t, err, ErrMissingID)
	_, err = svc.UpdateProfile(ctx, domain.UserProfile{Email: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	require.Empty(t, fx.remote.Calls())
	require.Equal(t, 0, fx.q.PendingCount())
}

func TestMutation_MaxRetriesPassedToQueue(t *testing.T) {
	svc, _ := newGateway(t, QueueOptions{StartOffline: true})
	svc.MaxRetries = 7

	res, err := svc.UpdateProfile(context.Background(), domain.UserProfile{Name: "Ana", DefaultCurrency: "gbp"})
	require.NoError(t, err)
	require.True(t, res.Queued)
	require.Equal(t, 7, res.Action.MaxRetries)
	require.Equal(t, domain.EntityUser, res.Action.Entity)
	require.JSONEq(t, `{"name":"Ana","default_currency":"GBP"}`, string(res.Action.Data))
}

func TestMutation_EnqueueStorageFailureSurfaces(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{StartOffline: true})
	fx.store.set(func(s *flakyStore) { s.failStore = errDisk })

	res, err := svc.DeleteSubscription(context.Background(), "1")
	require.Nil(t, res)
	require.ErrorIs(t, err, errDisk)
}

func TestMutation_AllOperationsOnline(t *testing.T) {
	svc, fx := newGateway(t, QueueOptions{})
	ctx := context.Background()

	_, err := svc.UpdateSubscription(ctx, "1", domain.Subscription{Name: "a", Currency: "USD"})
	require.NoError(t, err)
	_, err = svc.DeleteSubscription(ctx, "1")
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, domain.Category{Name: "c", Color: "#FF0000"})
	require.NoError(t, err)
	_, err = svc.UpdateCategory(ctx, "2", domain.Category{Name: "d"})
	require.NoError(t, err)
	_, err = svc.DeleteCategory(ctx, "2")
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, domain.UserProfile{ID: "u1", Name: "Ana"})
	require.NoError(t, err)

	require.Equal(t, []string{
		"update subscription 1",
		"delete subscription 1",
		"create category",
		"update category 2",
		"delete category 2",
		"update user u1",
	}, fx.remote.Calls())
}
