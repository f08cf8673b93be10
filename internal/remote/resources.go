package remote

import (
	"context"
	"net/http"

	"github.com/tbourn/recur-sync/internal/domain"
)

// SubscriptionsClient mutates /subscriptions.
type SubscriptionsClient struct{ c *Client }

// Create sends POST /subscriptions and returns the stored subscription.
func (s *SubscriptionsClient) Create(ctx context.Context, data domain.Subscription) (*domain.Subscription, error) {
	var out domain.Subscription
	if err := s.c.do(ctx, http.MethodPost, "/subscriptions", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends PUT /subscriptions/{id}.
func (s *SubscriptionsClient) Update(ctx context.Context, id string, data domain.Subscription) (*domain.Subscription, error) {
	var out domain.Subscription
	if err := s.c.do(ctx, http.MethodPut, resourcePath("subscriptions", id), data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete sends DELETE /subscriptions/{id}.
func (s *SubscriptionsClient) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, resourcePath("subscriptions", id), nil, nil)
}

// CategoriesClient mutates /categories.
type CategoriesClient struct{ c *Client }

// Create sends POST /categories.
func (cc *CategoriesClient) Create(ctx context.Context, data domain.Category) (*domain.Category, error) {
	var out domain.Category
	if err := cc.c.do(ctx, http.MethodPost, "/categories", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends PUT /categories/{id}.
func (cc *CategoriesClient) Update(ctx context.Context, id string, data domain.Category) (*domain.Category, error) {
	var out domain.Category
	if err := cc.c.do(ctx, http.MethodPut, resourcePath("categories", id), data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete sends DELETE /categories/{id}.
func (cc *CategoriesClient) Delete(ctx context.Context, id string) error {
	return cc.c.do(ctx, http.MethodDelete, resourcePath("categories", id), nil, nil)
}

// UsersClient mutates /users.
type UsersClient struct{ c *Client }

// UpdateProfile sends PUT /users/{id}, or PUT /users/me when id is empty.
func (u *UsersClient) UpdateProfile(ctx context.Context, id string, data domain.UserProfile) (*domain.UserProfile, error) {
	if id == "" {
		id = "me"
	}
	var out domain.UserProfile
	if err := u.c.do(ctx, http.MethodPut, resourcePath("users", id), data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
