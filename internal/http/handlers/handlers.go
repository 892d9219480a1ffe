package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/http/middleware"
	"github.com/tbourn/announcements-backend/internal/services"
)

//
// Service contract (context-aware)
//

// AnnouncementService is the application surface the handlers drive.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AnnouncementService interface {
	// List returns derived views; notModified is true when a candidate tag matches.
	List(ctx context.Context, ifNoneMatch ...string) (domain.AnnouncementList, bool, error)
	// Create validates and stores a new announcement.
	Create(ctx context.Context, in services.CreateAnnouncementInput) (*domain.Announcement, error)
	// AddComment validates and appends a comment.
	AddComment(ctx context.Context, announcementID string, in services.CreateCommentInput) (*domain.Comment, error)
	// ListComments returns one cursor page of comments.
	ListComments(ctx context.Context, announcementID, cursor string, limit int) (domain.CommentPage, error)
	// React sets the user's reaction, deduplicating on idempotencyKey.
	React(ctx context.Context, announcementID string, in services.ReactionInput, idempotencyKey string) (domain.ReactionResult, error)
	// Unreact removes the user's reaction.
	Unreact(ctx context.Context, announcementID, userID string) error
}

//
// Handler wiring
//

// Handlers groups the announcement board endpoints.
type Handlers struct {
	svc AnnouncementService
}

// New constructs Handlers bound to svc.
func New(svc AnnouncementService) *Handlers {
	return &Handlers{svc: svc}
}

//
// Body decoding
//

// errBodyNotObject is reported when the body is valid JSON but not an object.
var errBodyNotObject = errors.New("request body must be a JSON object")

// readObject reads the request body as a JSON object. An empty body reads as
// {}. When allowed is non-nil, keys outside it are rejected with
// unknown_fields. It writes the error response itself and returns false on
// failure.
func readObject(c *gin.Context, allowed []string) (map[string]json.RawMessage, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.BodyTooLarge()
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return nil, false
	}

	obj := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, errBodyNotObject.Error())
				return nil, false
			}
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return nil, false
		}
		if obj == nil { // literal null
			obj = map[string]json.RawMessage{}
		}
	}

	if allowed != nil {
		if extras := unknownKeys(obj, allowed); len(extras) > 0 {
			failErr(c, domain.UnknownFields(extras...))
			return nil, false
		}
	}
	return obj, true
}

// unknownKeys returns the keys of obj missing from allowed, sorted.
func unknownKeys(obj map[string]json.RawMessage, allowed []string) []string {
	var extras []string
	for k := range obj {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	return extras
}

// stringField reads obj[name]. Missing and null read as ("", true); any other
// non-string value reads as ("", false).
func stringField(obj map[string]json.RawMessage, name string) (string, bool) {
	raw, present := obj[name]
	if !present || string(bytes.TrimSpace(raw)) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// stringFields reads each named field with stringField. Every present
// non-string value is reported as a validation detail, in names order.
func stringFields(obj map[string]json.RawMessage, names ...string) ([]string, []domain.FieldError) {
	vals := make([]string, len(names))
	var bad []domain.FieldError
	for i, n := range names {
		s, isString := stringField(obj, n)
		if !isString {
			bad = append(bad, domain.FieldError{Field: n, Message: services.TypeMessage(n)})
			continue
		}
		vals[i] = s
	}
	return vals, bad
}

//
// Conditional requests
//

// formatETag renders a fingerprint as a weak entity tag.
func formatETag(fp string) string {
	return `W/"` + fp + `"`
}

// parseIfNoneMatch splits an If-None-Match header into bare tags: weak
// prefixes and quotes are dropped so they compare against raw fingerprints.
func parseIfNoneMatch(h string) []string {
	if strings.TrimSpace(h) == "" {
		return nil
	}
	parts := strings.Split(h, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "W/")
		p = strings.Trim(p, `"`)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
