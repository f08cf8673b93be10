// Package services – MutationService
//
// This file implements MutationService, the producer side of the offline
// queue. Each mutation is validated and normalized, then applied directly
// against the Recur API when the queue reports online. If the queue is
// offline, or the remote call fails at the transport level, the mutation is
// enqueued instead and the caller gets the queued action back. API errors
// (4xx/5xx) are returned unchanged; they would fail again on replay.
//
// The service never changes the queue's online state. Connectivity is owned
// by the connectivity monitor, whose next probe decides when replay starts.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/remote"
)

// Enqueuer is the part of SyncQueue the gateway needs.
type Enqueuer interface {
	IsOnline() bool
	AddPendingAction(ctx context.Context, draft NewAction) (*domain.OfflineAction, error)
}

// MutationResult is the outcome of one gateway call: either the remote
// result (Value) or the action deferred for later replay (Queued, Action).
type MutationResult[T any] struct {
	Queued bool
	Action *domain.OfflineAction
	Value  *T
}

// MutationService applies or defers subscription, category and profile
// mutations.
type MutationService struct {
	Queue  Enqueuer
	Remote RemoteServices

	// MaxRetries is the ceiling given to deferred actions; 0 keeps the
	// queue default.
	MaxRetries int
}

// CreateSubscription validates s and creates it remotely or defers it.
func (s *MutationService) CreateSubscription(ctx context.Context, sub domain.Subscription) (*MutationResult[domain.Subscription], error) {
	if err := NormalizeSubscription(&sub, false); err != nil {
		return nil, err
	}
	return apply(ctx, s, domain.EntitySubscription, domain.ActionCreate, sub,
		func(ctx context.Context) (*domain.Subscription, error) {
			return s.Remote.Subscriptions.Create(ctx, sub)
		})
}

// UpdateSubscription replaces the subscription identified by id.
func (s *MutationService) UpdateSubscription(ctx context.Context, id string, sub domain.Subscription) (*MutationResult[domain.Subscription], error) {
	sub.ID = domain.EntityID(id)
	if err := NormalizeSubscription(&sub, true); err != nil {
		return nil, err
	}
	return apply(ctx, s, domain.EntitySubscription, domain.ActionUpdate, sub,
		func(ctx context.Context) (*domain.Subscription, error) {
			return s.Remote.Subscriptions.Update(ctx, id, sub)
		})
}

// DeleteSubscription deletes the subscription identified by id.
func (s *MutationService) DeleteSubscription(ctx context.Context, id string) (*MutationResult[domain.EntityRef], error) {
	ref := domain.EntityRef{ID: domain.EntityID(id)}
	if ref.ID == "" {
		return nil, ErrMissingID
	}
	return apply(ctx, s, domain.EntitySubscription, domain.ActionDelete, ref,
		func(ctx context.Context) (*domain.EntityRef, error) {
			return &ref, s.Remote.Subscriptions.Delete(ctx, id)
		})
}

// CreateCategory validates c and creates it remotely or defers it.
func (s *MutationService) CreateCategory(ctx context.Context, c domain.Category) (*MutationResult[domain.Category], error) {
	if err := NormalizeCategory(&c, false); err != nil {
		return nil, err
	}
	return apply(ctx, s, domain.EntityCategory, domain.ActionCreate, c,
		func(ctx context.Context) (*domain.Category, error) {
			return s.Remote.Categories.Create(ctx, c)
		})
}

// UpdateCategory replaces the category identified by id.
func (s *MutationService) UpdateCategory(ctx context.Context, id string, c domain.Category) (*MutationResult[domain.Category], error) {
	c.ID = domain.EntityID(id)
	if err := NormalizeCategory(&c, true); err != nil {
		return nil, err
	}
	return apply(ctx, s, domain.EntityCategory, domain.ActionUpdate, c,
		func(ctx context.Context) (*domain.Category, error) {
			return s.Remote.Categories.Update(ctx, id, c)
		})
}

// DeleteCategory deletes the category identified by id.
func (s *MutationService) DeleteCategory(ctx context.Context, id string) (*MutationResult[domain.EntityRef], error) {
	ref := domain.EntityRef{ID: domain.EntityID(id)}
	if ref.ID == "" {
		return nil, ErrMissingID
	}
	return apply(ctx, s, domain.EntityCategory, domain.ActionDelete, ref,
		func(ctx context.Context) (*domain.EntityRef, error) {
			return &ref, s.Remote.Categories.Delete(ctx, id)
		})
}

// UpdateProfile updates the signed-in user's profile.
func (s *MutationService) UpdateProfile(ctx context.Context, p domain.UserProfile) (*MutationResult[domain.UserProfile], error) {
	if err := NormalizeProfile(&p); err != nil {
		return nil, err
	}
	return apply(ctx, s, domain.EntityUser, domain.ActionUpdate, p,
		func(ctx context.Context) (*domain.UserProfile, error) {
			return s.Remote.Users.UpdateProfile(ctx, p.ID.String(), p)
		})
}

// apply runs call when online and falls back to the queue when offline or
// on a network error.
func apply[T any](ctx context.Context, s *MutationService, entity domain.EntityType, typ domain.ActionType, payload any, call func(context.Context) (*T, error)) (*MutationResult[T], error) {
	ctx, span := otel.Tracer("services/MutationService").Start(ctx, "Mutate",
		trace.WithAttributes(
			attribute.String("action.entity", string(entity)),
			attribute.String("action.type", string(typ)),
		),
	)
	defer span.End()

	if s.Queue.IsOnline() {
		v, err := call(ctx)
		if err == nil {
			span.SetAttributes(attribute.Bool("mutation.queued", false))
			return &MutationResult[T]{Value: v}, nil
		}
		if !remote.IsNetworkError(err) {
			span.RecordError(err)
			return nil, err
		}
		log.Warn().Err(err).
			Str("component", "mutation_service").
			Str("entity", string(entity)).
			Str("type", string(typ)).
			Msg("remote unreachable, deferring mutation")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	a, err := s.Queue.AddPendingAction(ctx, NewAction{
		Type:       typ,
		Entity:     entity,
		Data:       data,
		MaxRetries: s.MaxRetries,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("mutation.queued", true), attribute.String("action.id", a.ID))
	return &MutationResult[T]{Queued: true, Action: a}, nil
}
