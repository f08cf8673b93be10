package services

import (
	"context"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/remote"
)

// ActionStore is the durable backing of the pending list. Implementations
// must survive process restarts; repo.OfflineStore is the production one.
type ActionStore interface {
	Store(ctx context.Context, a *domain.OfflineAction) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.OfflineAction, error)
	Clear(ctx context.Context) error
}

// SubscriptionAPI is the remote subscription resource.
type SubscriptionAPI interface {
	Create(ctx context.Context, data domain.Subscription) (*domain.Subscription, error)
	Update(ctx context.Context, id string, data domain.Subscription) (*domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// CategoryAPI is the remote category resource.
type CategoryAPI interface {
	Create(ctx context.Context, data domain.Category) (*domain.Category, error)
	Update(ctx context.Context, id string, data domain.Category) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

// UserAPI is the remote user resource.
type UserAPI interface {
	UpdateProfile(ctx context.Context, id string, data domain.UserProfile) (*domain.UserProfile, error)
}

// RemoteServices bundles the per-entity remote operations.
type RemoteServices struct {
	Subscriptions SubscriptionAPI
	Categories    CategoryAPI
	Users         UserAPI
}

// NewRemoteServices wires the resource clients of c.
func NewRemoteServices(c *remote.Client) RemoteServices {
	return RemoteServices{
		Subscriptions: c.Subscriptions(),
		Categories:    c.Categories(),
		Users:         c.Users(),
	}
}
