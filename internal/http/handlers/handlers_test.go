package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/http/middleware"
	"github.com/tbourn/announcements-backend/internal/services"
	"github.com/tbourn/announcements-backend/internal/store"
)

// ---------- test plumbing ----------

// newBoard wires handlers over a seeded memory store, mounted the way the
// router mounts them (minus rate limiting).
func newBoard(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Every clock read is one millisecond later, so activity order is strict.
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	var ticks int64
	st := store.NewMemory(store.WithClock(func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Millisecond)
	}))
	if err := st.Seed(context.Background(), store.DemoAnnouncements()...); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := New(services.NewAnnouncementService(st))

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		ReplayRoutes: []string{middleware.ReplayRoute(http.MethodPost, "/announcements/:id/reactions")},
	}, st.SeenIdempotencyKey))
	r.GET("/announcements", h.ListAnnouncements)
	r.POST("/announcements", h.CreateAnnouncement)
	r.POST("/announcements/:id/comments", h.AddComment)
	r.GET("/announcements/:id/comments", h.ListComments)
	r.POST("/announcements/:id/reactions", h.AddReaction)
	r.DELETE("/announcements/:id/reactions", h.RemoveReaction)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, w.Body.String())
	}
	return er
}

type viewJSON struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	CommentCount   int                   `json:"commentCount"`
	Reactions      domain.ReactionCounts `json:"reactions"`
	LastActivityAt string                `json:"lastActivityAt"`
}

func listViews(t *testing.T, r http.Handler) ([]viewJSON, string) {
	t.Helper()
	w := do(r, http.MethodGet, "/announcements", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /announcements -> %d", w.Code)
	}
	var views []viewJSON
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("list json: %v", err)
	}
	return views, w.Header().Get("ETag")
}

func viewByID(t *testing.T, views []viewJSON, id string) viewJSON {
	t.Helper()
	for _, v := range views {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("announcement %q not listed", id)
	return viewJSON{}
}

// ---------- helpers ----------

func TestParseIfNoneMatch(t *testing.T) {
	cases := map[string][]string{
		"":                  nil,
		"   ":               nil,
		`W/"abc"`:           {"abc"},
		`"abc"`:             {"abc"},
		`abc`:               {"abc"},
		`W/"a", "b" , W/""`: {"a", "b"},
		`*`:                 {"*"},
	}
	for in, want := range cases {
		if got := parseIfNoneMatch(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("parseIfNoneMatch(%q) = %#v; want %#v", in, got, want)
		}
	}
	if formatETag("abc") != `W/"abc"` {
		t.Fatalf("formatETag mismatch")
	}
}

func TestUnknownKeysAndStringField(t *testing.T) {
	obj := map[string]json.RawMessage{
		"title": json.RawMessage(`"x"`),
		"zeta":  json.RawMessage(`1`),
		"alpha": json.RawMessage(`null`),
	}
	if got := unknownKeys(obj, []string{"title"}); !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Fatalf("unknownKeys = %v", got)
	}
	if got := unknownKeys(obj, []string{"title", "zeta", "alpha"}); len(got) != 0 {
		t.Fatalf("no extras expected, got %v", got)
	}

	if s, ok := stringField(obj, "title"); s != "x" || !ok {
		t.Fatalf("title = %q %v", s, ok)
	}
	if s, ok := stringField(obj, "alpha"); s != "" || !ok {
		t.Fatalf("null should read as absent: %q %v", s, ok)
	}
	if s, ok := stringField(obj, "missing"); s != "" || !ok {
		t.Fatalf("missing should read as absent: %q %v", s, ok)
	}
	if _, ok := stringField(obj, "zeta"); ok {
		t.Fatalf("number must not read as string")
	}
}

// ---------- announcements ----------

func TestListAnnouncements_ETagAndNotModified(t *testing.T) {
	r := newBoard(t)

	views, etag := listViews(t, r)
	if len(views) != 2 {
		t.Fatalf("expected 2 seeded announcements, got %d", len(views))
	}
	if !strings.HasPrefix(etag, `W/"`) || !strings.HasSuffix(etag, `"`) {
		t.Fatalf("ETag should be weak and quoted: %q", etag)
	}
	for _, v := range views {
		if v.CommentCount != 0 || v.Reactions != (domain.ReactionCounts{}) || v.LastActivityAt == "" {
			t.Fatalf("unexpected fresh view: %+v", v)
		}
	}

	w := do(r, http.MethodGet, "/announcements", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("matching If-None-Match -> %d; want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("304 must have an empty body, got %q", w.Body.String())
	}

	// Bare fingerprint matches too.
	bare := strings.TrimSuffix(strings.TrimPrefix(etag, `W/"`), `"`)
	if w := do(r, http.MethodGet, "/announcements", "", map[string]string{"If-None-Match": bare}); w.Code != http.StatusNotModified {
		t.Fatalf("bare fingerprint -> %d; want 304", w.Code)
	}

	// Any change to a derived view changes the tag.
	if w := do(r, http.MethodPost, "/announcements/2/comments", `{"authorName":"Bob","text":"ok"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("add comment -> %d", w.Code)
	}
	w = do(r, http.MethodGet, "/announcements", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("stale If-None-Match -> %d; want 200", w.Code)
	}
	if w.Header().Get("ETag") == etag {
		t.Fatalf("ETag should change after a comment")
	}
}

func TestListAnnouncements_KeepsStorageOrder(t *testing.T) {
	r := newBoard(t)

	// Activity on the older seed updates its view but does not reorder the list.
	before, _ := listViews(t, r)
	last := before[len(before)-1].ID
	if w := do(r, http.MethodPost, "/announcements/"+last+"/comments", `{"authorName":"A","text":"bump"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("comment -> %d", w.Code)
	}
	after, _ := listViews(t, r)
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatalf("order changed: before %+v after %+v", before, after)
	}
	bumped := after[len(after)-1]
	if bumped.ID != last || bumped.CommentCount != 1 || bumped.LastActivityAt == before[len(before)-1].LastActivityAt {
		t.Fatalf("bumped view = %+v", bumped)
	}
}

func TestCreateAnnouncement(t *testing.T) {
	r := newBoard(t)

	w := do(r, http.MethodPost, "/announcements", `{"title":"  Pool   reopens  "}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d (%s)", w.Code, w.Body.String())
	}
	var a domain.Announcement
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("json: %v", err)
	}
	if a.ID == "" || a.Title != "Pool reopens" || a.CreatedAt.IsZero() {
		t.Fatalf("unexpected announcement: %+v", a)
	}

	views, _ := listViews(t, r)
	if len(views) != 3 || viewByID(t, views, a.ID).Title != "Pool reopens" {
		t.Fatalf("created announcement not listed: %+v", views)
	}
}

func TestCreateAnnouncement_Errors(t *testing.T) {
	r := newBoard(t)

	cases := []struct {
		name     string
		body     string
		status   int
		code     string
		contains string
	}{
		{"blank title", `{"title":"   "}`, http.StatusBadRequest, ErrCodeValidation, `"field":"title"`},
		{"missing title", `{}`, http.StatusBadRequest, ErrCodeValidation, `"title is required"`},
		{"empty body", ``, http.StatusBadRequest, ErrCodeValidation, `"title is required"`},
		{"non-string title", `{"title":42}`, http.StatusBadRequest, ErrCodeValidation, `{"field":"title","message":"title must be string"}`},
		{"too long", `{"title":"` + strings.Repeat("x", 201) + `"}`, http.StatusBadRequest, ErrCodeValidation, `title must be 1-200 chars`},
		{"unknown field", `{"title":"ok","pinned":true}`, http.StatusBadRequest, ErrCodeUnknownFields, `"fields":["pinned"]`},
		{"invalid json", `{"title":`, http.StatusBadRequest, ErrCodeBadRequest, `invalid JSON body`},
		{"array body", `["title"]`, http.StatusBadRequest, ErrCodeBadRequest, `JSON object`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/announcements", tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			er := decodeError(t, w)
			if er.Code != tc.code || er.RequestID == "" {
				t.Fatalf("unexpected envelope: %+v", er)
			}
			if !strings.Contains(w.Body.String(), tc.contains) {
				t.Fatalf("body %s should contain %s", w.Body.String(), tc.contains)
			}
		})
	}

	if views, _ := listViews(t, r); len(views) != 2 {
		t.Fatalf("failed creates must not store anything, got %d", len(views))
	}
}

// ---------- comments ----------

func TestAddComment(t *testing.T) {
	r := newBoard(t)

	w := do(r, http.MethodPost, "/announcements/1/comments", `{"authorName":" Alice ","text":" Noted "}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add -> %d (%s)", w.Code, w.Body.String())
	}
	var c domain.Comment
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("json: %v", err)
	}
	if c.ID == "" || c.AnnouncementID != "1" || c.AuthorName != "Alice" || c.Text != "Noted" {
		t.Fatalf("unexpected comment: %+v", c)
	}
}

func TestAddComment_Errors(t *testing.T) {
	r := newBoard(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
		want   string
	}{
		{"unknown announcement", "/announcements/nope/comments", `{"authorName":"a","text":"b"}`, http.StatusNotFound, ErrCodeNotFound, `"message":"Announcement not found"`},
		{"both missing", "/announcements/1/comments", `{}`, http.StatusBadRequest, ErrCodeValidation, `"authorName is required"`},
		{"text too long", "/announcements/1/comments", `{"authorName":"a","text":"` + strings.Repeat("t", 501) + `"}`, http.StatusBadRequest, ErrCodeValidation, `text must be 1-500 chars`},
		{"author too long", "/announcements/1/comments", `{"authorName":"` + strings.Repeat("a", 101) + `","text":"b"}`, http.StatusBadRequest, ErrCodeValidation, `authorName must be 1-100 chars`},
		{"non-string text", "/announcements/1/comments", `{"authorName":"a","text":123}`, http.StatusBadRequest, ErrCodeValidation, `[{"field":"text","message":"text must be string"}]`},
		{"non-string both", "/announcements/1/comments", `{"authorName":[],"text":{}}`, http.StatusBadRequest, ErrCodeValidation, `"details":[{"field":"authorName","message":"authorName must be string"},{"field":"text","message":"text must be string"}]`},
		{"null reads as missing", "/announcements/1/comments", `{"authorName":"a","text":null}`, http.StatusBadRequest, ErrCodeValidation, `"text is required"`},
		{"unknown fields sorted", "/announcements/1/comments", `{"authorName":"a","text":"b","z":1,"m":2}`, http.StatusBadRequest, ErrCodeUnknownFields, `"fields":["m","z"]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if er := decodeError(t, w); er.Code != tc.code {
				t.Fatalf("code=%q; want %q", er.Code, tc.code)
			}
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("body %s should contain %s", w.Body.String(), tc.want)
			}
		})
	}

	views, _ := listViews(t, r)
	if viewByID(t, views, "1").CommentCount != 0 {
		t.Fatalf("rejected comments must not be stored")
	}
}

type pageJSON struct {
	Items      []domain.Comment `json:"items"`
	NextCursor *string          `json:"nextCursor"`
}

func listPage(t *testing.T, r http.Handler, path string) pageJSON {
	t.Helper()
	w := do(r, http.MethodGet, path, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s -> %d", path, w.Code)
	}
	var p pageJSON
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("page json: %v", err)
	}
	return p
}

func TestListComments_CursorPagination(t *testing.T) {
	r := newBoard(t)
	for _, text := range []string{"one", "two", "three"} {
		if w := do(r, http.MethodPost, "/announcements/1/comments", `{"authorName":"a","text":"`+text+`"}`, nil); w.Code != http.StatusCreated {
			t.Fatalf("add %s -> %d", text, w.Code)
		}
	}

	p1 := listPage(t, r, "/announcements/1/comments?limit=2")
	if len(p1.Items) != 2 || p1.Items[0].Text != "one" || p1.Items[1].Text != "two" {
		t.Fatalf("first page: %+v", p1.Items)
	}
	if p1.NextCursor == nil || *p1.NextCursor != p1.Items[1].ID {
		t.Fatalf("nextCursor should be the last item id, got %v", p1.NextCursor)
	}

	p2 := listPage(t, r, "/announcements/1/comments?limit=2&cursor="+*p1.NextCursor)
	if len(p2.Items) != 1 || p2.Items[0].Text != "three" || p2.NextCursor != nil {
		t.Fatalf("second page: %+v next=%v", p2.Items, p2.NextCursor)
	}

	// Unknown cursor restarts from the beginning.
	if p := listPage(t, r, "/announcements/1/comments?cursor=ghost"); len(p.Items) != 3 {
		t.Fatalf("unknown cursor should restart, got %d items", len(p.Items))
	}
}

func TestListComments_LimitFallbackAndUnknownAnnouncement(t *testing.T) {
	r := newBoard(t)
	for i := 0; i < 12; i++ {
		if w := do(r, http.MethodPost, "/announcements/2/comments", `{"authorName":"a","text":"c"}`, nil); w.Code != http.StatusCreated {
			t.Fatalf("add -> %d", w.Code)
		}
	}

	for _, q := range []string{"", "?limit=abc", "?limit=0", "?limit=51", "?limit=-3"} {
		p := listPage(t, r, "/announcements/2/comments"+q)
		if len(p.Items) != 10 || p.NextCursor == nil {
			t.Fatalf("%q: expected default page of 10 with cursor, got %d", q, len(p.Items))
		}
	}
	if p := listPage(t, r, "/announcements/2/comments?limit=50"); len(p.Items) != 12 || p.NextCursor != nil {
		t.Fatalf("limit=50 should return all 12 without cursor, got %d", len(p.Items))
	}

	w := do(r, http.MethodGet, "/announcements/ghost/comments", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown announcement -> %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) || !strings.Contains(w.Body.String(), `"nextCursor":null`) {
		t.Fatalf("expected empty page, got %s", w.Body.String())
	}
}

// ---------- reactions ----------

func TestAddReaction_AndReplace(t *testing.T) {
	r := newBoard(t)

	w := do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"UP","userId":"u1"}`, nil)
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Fatalf("react -> %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("fresh write must not be flagged as replayed")
	}

	// Same user switches to heart: one reaction per user.
	_ = do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"heart","userId":"u1"}`, nil)
	// Missing userId counts as anonymous.
	_ = do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"down"}`, nil)

	views, _ := listViews(t, r)
	if got := viewByID(t, views, "1").Reactions; got != (domain.ReactionCounts{Heart: 1, Down: 1}) {
		t.Fatalf("reactions = %+v", got)
	}
}

func TestAddReaction_IdempotencyReplay(t *testing.T) {
	r := newBoard(t)
	key := map[string]string{middleware.HeaderIdempotencyKey: "retry-1"}

	w1 := do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"up","userId":"u1"}`, key)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first -> %d", w1.Code)
	}
	// A retry with the same key is absorbed even if the body differs.
	w2 := do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"down","userId":"u1"}`, key)
	if w2.Code != http.StatusCreated || w2.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay -> %d replayed=%q", w2.Code, w2.Header().Get(middleware.HeaderIdempotencyReplayed))
	}

	views, _ := listViews(t, r)
	if got := viewByID(t, views, "1").Reactions; got != (domain.ReactionCounts{Up: 1}) {
		t.Fatalf("replay must not change state: %+v", got)
	}

	bad := do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"up"}`, map[string]string{middleware.HeaderIdempotencyKey: "has space"})
	if bad.Code != http.StatusBadRequest || !strings.Contains(bad.Body.String(), "bad_idempotency_key") {
		t.Fatalf("malformed key -> %d %s", bad.Code, bad.Body.String())
	}
}

func TestAddReaction_Errors(t *testing.T) {
	r := newBoard(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"unknown type", "/announcements/1/reactions", `{"type":"like"}`, http.StatusBadRequest, `type must be up|down|heart`},
		{"missing type", "/announcements/1/reactions", `{}`, http.StatusBadRequest, `type must be up|down|heart`},
		{"non-string type", "/announcements/1/reactions", `{"type":1}`, http.StatusBadRequest, `type must be up|down|heart`},
		{"non-string userId", "/announcements/1/reactions", `{"type":"up","userId":7}`, http.StatusBadRequest, services.MsgUserIDType},
		{"unknown announcement", "/announcements/ghost/reactions", `{"type":"up"}`, http.StatusNotFound, `Announcement not found`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tc.path, tc.body, nil)
			if w.Code != tc.status || !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("-> %d %s; want %d containing %q", w.Code, w.Body.String(), tc.status, tc.want)
			}
		})
	}

	// Unknown fields are tolerated on reactions.
	if w := do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"up","client":"web"}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("extra reaction field -> %d", w.Code)
	}
}

func TestRemoveReaction(t *testing.T) {
	r := newBoard(t)
	_ = do(r, http.MethodPost, "/announcements/1/reactions", `{"type":"heart","userId":"u1"}`, nil)

	w := do(r, http.MethodDelete, "/announcements/1/reactions", "", nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrCodeMissingUserID {
		t.Fatalf("missing header -> %d %s", w.Code, w.Body.String())
	}

	user := map[string]string{middleware.HeaderUserID: "u1"}
	if w := do(r, http.MethodDelete, "/announcements/1/reactions", "", user); w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("remove -> %d %q", w.Code, w.Body.String())
	}
	// Removing again, or on an unknown announcement, still succeeds.
	if w := do(r, http.MethodDelete, "/announcements/1/reactions", "", user); w.Code != http.StatusNoContent {
		t.Fatalf("second remove -> %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/announcements/ghost/reactions", "", user); w.Code != http.StatusNoContent {
		t.Fatalf("unknown announcement remove -> %d", w.Code)
	}

	views, _ := listViews(t, r)
	if got := viewByID(t, views, "1").Reactions; got != (domain.ReactionCounts{}) {
		t.Fatalf("reaction should be gone: %+v", got)
	}
}

// ---------- transport edge cases ----------

func TestBodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(services.NewAnnouncementService(store.NewMemory()))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	})
	r.POST("/announcements", h.CreateAnnouncement)

	w := do(r, http.MethodPost, "/announcements", `{"title":"`+strings.Repeat("x", 64)+`"}`, nil)
	if w.Code != http.StatusRequestEntityTooLarge || decodeError(t, w).Code != ErrCodePayloadTooLarge {
		t.Fatalf("oversized body -> %d %s", w.Code, w.Body.String())
	}
}

type failingService struct {
	AnnouncementService
}

func (failingService) List(context.Context, ...string) (domain.AnnouncementList, bool, error) {
	return domain.AnnouncementList{}, false, errors.New("store exploded")
}

func TestListAnnouncements_InternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/announcements", New(failingService{}).ListAnnouncements)

	w := do(r, http.MethodGet, "/announcements", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeInternal || bytes.Contains(w.Body.Bytes(), []byte("exploded")) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
