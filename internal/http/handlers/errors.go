// Package handlers defines the stable error codes returned by the control API.
//
// Every error response carries an HTTP status and one of these codes in the
// {request_id, code, message} envelope. Clients branch on the code.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "unsupported_action",
//	  "message": "unsupported action: create user"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Queue and gateway:
	ErrCodeInvalidAction     = "invalid_action"
	ErrCodeUnsupportedAction = "unsupported_action"
	ErrCodeInvalidPayload    = "invalid_payload"
	ErrCodeRemoteRejected    = "remote_rejected"
	ErrCodeRemoteError       = "remote_error"
	ErrCodeRemoteUnavailable = "remote_unavailable"
	ErrCodeRemoteTimeout     = "remote_timeout"
	ErrCodeStorage           = "storage_error"
	ErrCodeSyncFailed        = "sync_failed"
)
