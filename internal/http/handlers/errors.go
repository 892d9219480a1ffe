// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Those that originate in the domain
// (validation_error, not_found, unknown_fields, missing_user_id) are produced
// by failErr from a *domain.Error; the rest are transport-level and passed to
// fail() directly. Clients are expected to branch on these codes.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeValidation    = "validation_error"
	ErrCodeUnknownFields = "unknown_fields"
	ErrCodeMissingUserID = "missing_user_id"
)
