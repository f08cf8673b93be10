// Package services holds the offline sync queue and the mutation gateway that
// feeds it. This file centralizes service-level error values so that they can
// be returned consistently and checked by callers with errors.Is.
//
// Translation into HTTP status codes happens in the handler layer.
package services

import "errors"

// Queue errors.
var (
	// ErrUnsupportedAction is returned for an (entity, type) pair with no
	// remote operation, e.g. creating or deleting a user.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrInvalidAction is returned when a draft action is malformed (unknown
	// type or entity, empty payload, negative retry ceiling).
	ErrInvalidAction = errors.New("invalid action")

	// ErrActionNotFound indicates that no pending action has the given ID.
	ErrActionNotFound = errors.New("action not found")

	// errSyncPanic marks a pass aborted by a panic outside per-action handling.
	errSyncPanic = errors.New("sync pass panicked")
)

// Payload errors.
var (
	// ErrInvalidPayload is returned when action data cannot be decoded into
	// the entity it targets, or lacks a required identifier.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidName is returned for an empty or over-long name.
	ErrInvalidName = errors.New("name is empty or too long")

	// ErrInvalidAmount is returned for a negative or non-finite amount.
	ErrInvalidAmount = errors.New("amount must be a non-negative number")

	// ErrInvalidCurrency is returned for a code that is not ISO 4217.
	ErrInvalidCurrency = errors.New("currency must be an ISO 4217 code")

	// ErrInvalidBillingCycle is returned for an unknown billing cycle.
	ErrInvalidBillingCycle = errors.New("billing cycle must be weekly, monthly, quarterly or yearly")

	// ErrInvalidColor is returned for a category color that is not #RRGGBB.
	ErrInvalidColor = errors.New("color must be #RRGGBB")

	// ErrInvalidEmail is returned for a malformed profile email.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrMissingID is returned when an update or delete has no entity id.
	ErrMissingID = errors.New("entity id is required")
)
