package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tbourn/recur-sync/internal/domain"
)

// actionHandler replays one action against the remote API. It returns nil
// only when the remote call succeeded.
type actionHandler func(ctx context.Context, rs RemoteServices, data json.RawMessage) error

type dispatchKey struct {
	entity domain.EntityType
	typ    domain.ActionType
}

// dispatch holds exactly the supported (entity, type) pairs. Users can only
// be updated.
var dispatch = map[dispatchKey]actionHandler{
	{domain.EntitySubscription, domain.ActionCreate}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		s, err := decodeSubscription(data, false)
		if err != nil {
			return err
		}
		_, err = rs.Subscriptions.Create(ctx, s)
		return err
	},
	{domain.EntitySubscription, domain.ActionUpdate}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		s, err := decodeSubscription(data, true)
		if err != nil {
			return err
		}
		_, err = rs.Subscriptions.Update(ctx, s.ID.String(), s)
		return err
	},
	{domain.EntitySubscription, domain.ActionDelete}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		id, err := decodeRef(data)
		if err != nil {
			return err
		}
		return rs.Subscriptions.Delete(ctx, id)
	},
	{domain.EntityCategory, domain.ActionCreate}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		c, err := decodeCategory(data, false)
		if err != nil {
			return err
		}
		_, err = rs.Categories.Create(ctx, c)
		return err
	},
	{domain.EntityCategory, domain.ActionUpdate}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		c, err := decodeCategory(data, true)
		if err != nil {
			return err
		}
		_, err = rs.Categories.Update(ctx, c.ID.String(), c)
		return err
	},
	{domain.EntityCategory, domain.ActionDelete}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		id, err := decodeRef(data)
		if err != nil {
			return err
		}
		return rs.Categories.Delete(ctx, id)
	},
	{domain.EntityUser, domain.ActionUpdate}: func(ctx context.Context, rs RemoteServices, data json.RawMessage) error {
		var p domain.UserProfile
		if err := decodePayload(data, &p); err != nil {
			return err
		}
		_, err := rs.Users.UpdateProfile(ctx, p.ID.String(), p)
		return err
	},
}

// Supported reports whether (entity, typ) has a remote operation.
func Supported(entity domain.EntityType, typ domain.ActionType) bool {
	_, ok := dispatch[dispatchKey{entity, typ}]
	return ok
}

func decodePayload(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// checkPayload decodes data the way the replay handler for (entity, typ)
// will, so payloads that could never be replayed are rejected at enqueue.
func checkPayload(entity domain.EntityType, typ domain.ActionType, data json.RawMessage) error {
	var err error
	switch {
	case typ == domain.ActionDelete:
		_, err = decodeRef(data)
	case entity == domain.EntitySubscription:
		_, err = decodeSubscription(data, typ == domain.ActionUpdate)
	case entity == domain.EntityCategory:
		_, err = decodeCategory(data, typ == domain.ActionUpdate)
	case entity == domain.EntityUser:
		err = decodePayload(data, &domain.UserProfile{})
	}
	return err
}

func decodeSubscription(data json.RawMessage, requireID bool) (domain.Subscription, error) {
	var s domain.Subscription
	if err := decodePayload(data, &s); err != nil {
		return s, err
	}
	if requireID && s.ID == "" {
		return s, fmt.Errorf("%w: %w", ErrInvalidPayload, ErrMissingID)
	}
	return s, nil
}

func decodeCategory(data json.RawMessage, requireID bool) (domain.Category, error) {
	var c domain.Category
	if err := decodePayload(data, &c); err != nil {
		return c, err
	}
	if requireID && c.ID == "" {
		return c, fmt.Errorf("%w: %w", ErrInvalidPayload, ErrMissingID)
	}
	return c, nil
}

// decodeRef reads the target of a delete: either an object carrying "id" or
// a bare JSON string or number.
func decodeRef(data json.RawMessage) (string, error) {
	var id domain.EntityID
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var ref domain.EntityRef
		if err := decodePayload(trimmed, &ref); err != nil {
			return "", err
		}
		id = ref.ID
	} else if err := decodePayload(trimmed, &id); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, ErrMissingID)
	}
	return id.String(), nil
}
