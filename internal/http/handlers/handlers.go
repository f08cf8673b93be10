// Package handlers exposes the offline queue and the mutation gateway over
// REST. Handlers are transport-thin: they bind and validate input, call the
// queue or the gateway and translate results into HTTP responses.
package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/services"
)

// IdempotencyScopeActions is the idempotency scope of POST /sync/actions.
const IdempotencyScopeActions = "sync.actions"

// Queue is the part of services.SyncQueue the API drives.
type Queue interface {
	State() services.QueueState
	PendingActions() []domain.OfflineAction
	Get(id string) (*domain.OfflineAction, error)
	AddPendingAction(ctx context.Context, draft services.NewAction) (*domain.OfflineAction, error)
	RemovePendingAction(ctx context.Context, id string) error
	ClearPendingActions(ctx context.Context) error
	SyncPendingActions(ctx context.Context) (services.SyncReport, error)
	SetOnlineStatus(ctx context.Context, online bool)
}

// Mutations is the entity write gateway (services.MutationService).
type Mutations interface {
	CreateSubscription(ctx context.Context, sub domain.Subscription) (*services.MutationResult[domain.Subscription], error)
	UpdateSubscription(ctx context.Context, id string, sub domain.Subscription) (*services.MutationResult[domain.Subscription], error)
	DeleteSubscription(ctx context.Context, id string) (*services.MutationResult[domain.EntityRef], error)
	CreateCategory(ctx context.Context, c domain.Category) (*services.MutationResult[domain.Category], error)
	UpdateCategory(ctx context.Context, id string, c domain.Category) (*services.MutationResult[domain.Category], error)
	DeleteCategory(ctx context.Context, id string) (*services.MutationResult[domain.EntityRef], error)
	UpdateProfile(ctx context.Context, p domain.UserProfile) (*services.MutationResult[domain.UserProfile], error)
}

// Options carries the optional persistence used for ETags and idempotency
// records. A nil DB disables both.
type Options struct {
	DB             *gorm.DB
	IdempotencyTTL time.Duration
}

// Handlers groups the control API endpoints.
type Handlers struct {
	queue   Queue
	mut     Mutations
	db      *gorm.DB
	idemTTL time.Duration
	now     func() time.Time
}

// New binds the handlers to the queue and the gateway.
func New(q Queue, m Mutations, opts Options) *Handlers {
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		queue:   q,
		mut:     m,
		db:      opts.DB,
		idemTTL: ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}
