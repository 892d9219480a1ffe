// Comment HTTP handlers.
//
// This file exposes REST endpoints for comments on an announcement:
//   - POST /announcements/{id}/comments   (append)
//   - GET  /announcements/{id}/comments   (cursor page, oldest first)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/announcements-backend/internal/board"
	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/services"
	"github.com/tbourn/announcements-backend/internal/utils"
)

// CreateCommentRequest is the JSON payload for adding a comment.
type CreateCommentRequest struct {
	AuthorName string `json:"authorName" example:"Alice"`
	Text       string `json:"text"       example:"Thanks for the heads-up!"`
}

var commentFields = []string{"authorName", "text"}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on an announcement
// @Description Appends a comment. authorName must be 1-100 and text 1-500 characters after trimming.
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                           true  "Announcement ID"
// @Param       body  body  handlers.CreateCommentRequest    true  "Comment payload"
//
// @Success     201  {object}  domain.Comment
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or unknown fields"
// @Failure     404  {object}  handlers.ErrorResponse  "Announcement not found"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	obj, good := readObject(c, commentFields)
	if !good {
		return
	}
	vals, bad := stringFields(obj, "authorName", "text")
	if len(bad) > 0 {
		failErr(c, domain.Validation(bad...))
		return
	}

	cm, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), services.CreateCommentInput{
		AuthorName: vals[0],
		Text:       vals[1],
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments (cursor)
// @Description Returns comments oldest first. nextCursor is the last item's id when more remain, else null.
// @Description An unknown cursor restarts from the beginning; an unknown announcement yields an empty page.
// @Tags        Comments
// @Produce     json
//
// @Param       id      path   string  true   "Announcement ID"
// @Param       cursor  query  string  false  "Id of the last comment already seen"
// @Param       limit   query  int     false  "Page size; out-of-range values fall back to 10"  minimum(1) maximum(50) default(10)
//
// @Success     200  {object}  domain.CommentPage
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	limit := utils.LimitParam(c.Query("limit"), board.DefaultCommentLimit, board.MaxCommentLimit)

	page, err := h.svc.ListComments(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}
