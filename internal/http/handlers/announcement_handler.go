// Announcement HTTP handlers.
//
// This file exposes REST endpoints for announcements:
//   - GET  /announcements   (derived views, weak ETag, 304 on match)
//   - POST /announcements   (create)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/services"
)

// CreateAnnouncementRequest is the JSON payload for creating an announcement.
type CreateAnnouncementRequest struct {
	// Title is trimmed, whitespace-collapsed and must be 1-200 characters.
	Title string `json:"title" example:"Water supply maintenance on Friday"`
}

var announcementFields = []string{"title"}

// ListAnnouncements godoc
// @ID          listAnnouncements
// @Summary     List announcements with activity
// @Description Returns every announcement with comment count, reaction counts and last activity,
// @Description newest announcement first. Supports weak ETag via If-None-Match.
// @Tags        Announcements
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
//
// @Success     200  {array}   domain.AnnouncementView
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements [get]
func (h *Handlers) ListAnnouncements(c *gin.Context) {
	list, notModified, err := h.svc.List(c.Request.Context(), parseIfNoneMatch(c.GetHeader("If-None-Match"))...)
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("ETag", formatETag(list.ETag))
	if notModified {
		c.Status(http.StatusNotModified)
		return
	}
	views := list.Views
	if views == nil {
		views = []domain.AnnouncementView{}
	}
	ok(c, http.StatusOK, views)
}

// CreateAnnouncement godoc
// @ID          createAnnouncement
// @Summary     Create an announcement
// @Tags        Announcements
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateAnnouncementRequest  true  "Announcement payload"
//
// @Success     201  {object}  domain.Announcement
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or unknown fields"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements [post]
func (h *Handlers) CreateAnnouncement(c *gin.Context) {
	obj, good := readObject(c, announcementFields)
	if !good {
		return
	}
	vals, bad := stringFields(obj, "title")
	if len(bad) > 0 {
		failErr(c, domain.Validation(bad...))
		return
	}

	a, err := h.svc.Create(c.Request.Context(), services.CreateAnnouncementInput{Title: vals[0]})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}
