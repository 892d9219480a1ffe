// Package services defines the business logic for announcements, comments and
// reactions. This file centralizes the service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// Every error here is a *domain.Error; the handler layer maps its kind to an
// HTTP status and never inspects messages.
package services

import "github.com/tbourn/announcements-backend/internal/domain"

// Error codes that refine a kind's default code.
const (
	CodeMissingUserID = "missing_user_id"
)

var (
	// ErrMissingUserID is returned when a reaction removal names no user.
	ErrMissingUserID = &domain.Error{
		Kind:    domain.KindValidation,
		Code:    CodeMissingUserID,
		Message: "x-user-id header is required",
	}
)

// Field validation messages, keyed by JSON field name.
const (
	msgTitleRequired      = "title is required"
	msgTitleLength        = "title must be 1-200 chars"
	msgAuthorNameRequired = "authorName is required"
	msgAuthorNameLength   = "authorName must be 1-100 chars"
	msgTextRequired       = "text is required"
	msgTextLength         = "text must be 1-500 chars"
	msgReactionType       = "type must be up|down|heart"
	msgUserIDLength       = "userId must be at most 128 chars"
)

// MsgUserIDType is reported when userId is present but not a JSON string.
// Decoding happens in the transport, which reuses this message.
const MsgUserIDType = "userId must be string"

// TypeMessage is reported when a text field is present but not a JSON string.
func TypeMessage(field string) string { return field + " must be string" }
