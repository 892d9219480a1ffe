// Reaction HTTP handlers.
//
// This file exposes REST endpoints for reactions:
//   - POST   /announcements/{id}/reactions   (set the user's reaction)
//   - DELETE /announcements/{id}/reactions   (remove it; user from X-User-ID)
//
// Idempotency:
// A write carrying an Idempotency-Key that is already recorded is absorbed
// without touching state; the response is the same 201 with
// `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/http/middleware"
	"github.com/tbourn/announcements-backend/internal/services"
)

// AddReactionRequest is the JSON payload for reacting to an announcement.
type AddReactionRequest struct {
	// Type is one of up, down, heart (case-insensitive).
	Type string `json:"type" example:"heart"`
	// UserID defaults to "anonymous".
	UserID string `json:"userId,omitempty" example:"user123"`
}

// AddReaction godoc
// @ID          addReaction
// @Summary     React to an announcement
// @Description Sets the caller's single reaction, replacing any previous one.
// @Description Supports idempotency via the Idempotency-Key header (same key within the retention window is a no-op).
// @Tags        Reactions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                        false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string                        true   "Announcement ID"
// @Param       body             body    handlers.AddReactionRequest   true   "Reaction payload"
//
// @Success     201  {object}  domain.ReactionResult
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or bad idempotency key"
// @Failure     404  {object}  handlers.ErrorResponse  "Announcement not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements/{id}/reactions [post]
func (h *Handlers) AddReaction(c *gin.Context) {
	obj, good := readObject(c, nil)
	if !good {
		return
	}
	typ, _ := stringField(obj, "type")
	userID, isString := stringField(obj, "userId")
	if !isString {
		failErr(c, domain.Validation(domain.FieldError{Field: "userId", Message: services.MsgUserIDType}))
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.svc.React(c.Request.Context(), c.Param("id"), services.ReactionInput{
		Type:   typ,
		UserID: userID,
	}, key)
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, res)
}

// RemoveReaction godoc
// @ID          removeReaction
// @Summary     Remove the caller's reaction
// @Description Idempotent: removing a reaction that does not exist still succeeds.
// @Tags        Reactions
//
// @Param       X-User-ID  header  string  true  "User whose reaction is removed"  example(user123)
// @Param       id         path    string  true  "Announcement ID"
//
// @Success     204  "Removed"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing X-User-ID"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements/{id}/reactions [delete]
func (h *Handlers) RemoveReaction(c *gin.Context) {
	if err := h.svc.Unreact(c.Request.Context(), c.Param("id"), c.GetHeader(middleware.HeaderUserID)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
