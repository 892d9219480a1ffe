package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/store"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSQLStore(t *testing.T, opts ...store.Option) (*Store, *stepClock) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite(fmt.Sprintf("file:store_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	clk := &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(db, append([]store.Option{store.WithClock(clk.Now)}, opts...)...)
	if err := s.Seed(context.Background(), store.DemoAnnouncements()...); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s, clk
}

func sqlView(t *testing.T, s *Store, id string) domain.AnnouncementView {
	t.Helper()
	list, err := s.GetAnnouncementsWithAggregates(context.Background())
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	for _, v := range list.Views {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("announcement %q not found in %+v", id, list.Views)
	return domain.AnnouncementView{}
}

func TestStore_SeedOrderAndNewestFirst(t *testing.T) {
	s, clk := newSQLStore(t)
	ctx := context.Background()
	clk.Advance(time.Second)

	a, err := s.AddAnnouncement(ctx, "Pool reopens")
	if err != nil {
		t.Fatalf("AddAnnouncement: %v", err)
	}
	list, err := s.GetAnnouncementsWithAggregates(ctx)
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	var ids []string
	for _, v := range list.Views {
		ids = append(ids, v.ID)
	}
	if strings.Join(ids, ",") != a.ID+",1,2" {
		t.Fatalf("order=%v; want [%s 1 2]", ids, a.ID)
	}
	if list.Views[0].LastActivityAt.Location() != time.UTC {
		t.Fatalf("times should come back in UTC")
	}
}

func TestStore_AddCommentAndNotFound(t *testing.T) {
	s, _ := newSQLStore(t)
	ctx := context.Background()

	if _, err := s.AddComment(ctx, "1", "Alice", "Hi"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if got := sqlView(t, s, "1").CommentCount; got != 1 {
		t.Fatalf("commentCount=%d; want 1", got)
	}

	_, err := s.AddComment(ctx, "missing-id", "Bob", "x")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Message != "Announcement not found" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestStore_ReactionReplaceAndReplay(t *testing.T) {
	s, clk := newSQLStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.AddReaction(ctx, "1", domain.ReactionUp, "", ""); err != nil {
			t.Fatalf("AddReaction: %v", err)
		}
	}
	if got := sqlView(t, s, "1").Reactions; got != (domain.ReactionCounts{Up: 1}) {
		t.Fatalf("reactions=%+v; want up=1", got)
	}

	res, err := s.AddReaction(ctx, "1", domain.ReactionHeart, "u1", "key-1")
	if err != nil || res.Replayed {
		t.Fatalf("keyed write: %+v %v", res, err)
	}
	clk.Advance(time.Second)
	res, err = s.AddReaction(ctx, "1", domain.ReactionDown, "u1", "key-1")
	if err != nil || !res.OK || !res.Replayed {
		t.Fatalf("replay: %+v %v", res, err)
	}
	if got := sqlView(t, s, "1").Reactions; got != (domain.ReactionCounts{Up: 1, Heart: 1}) {
		t.Fatalf("replay must not transition: %+v", got)
	}
	if seen, err := s.SeenIdempotencyKey(ctx, "key-1"); err != nil || !seen {
		t.Fatalf("SeenIdempotencyKey=%v err=%v", seen, err)
	}

	if _, err := s.AddReaction(ctx, "nope", domain.ReactionUp, "u1", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestStore_KeyExpiryAndPurge(t *testing.T) {
	s, clk := newSQLStore(t, store.WithIdempotencyTTL(time.Minute))
	ctx := context.Background()

	if _, err := s.AddReaction(ctx, "2", domain.ReactionUp, "u1", "k"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	clk.Advance(2 * time.Minute)
	if seen, _ := s.SeenIdempotencyKey(ctx, "k"); seen {
		t.Fatalf("key should have expired")
	}
	_ = sqlView(t, s, "2") // purges

	var n int64
	s.db.Model(&domain.IdempotencyRecord{}).Count(&n)
	if n != 0 {
		t.Fatalf("expected purge to delete expired record, %d left", n)
	}

	res, err := s.AddReaction(ctx, "2", domain.ReactionHeart, "u1", "k")
	if err != nil || res.Replayed {
		t.Fatalf("expired key should apply: %+v %v", res, err)
	}
	if got := sqlView(t, s, "2").Reactions; got != (domain.ReactionCounts{Heart: 1}) {
		t.Fatalf("reactions=%+v", got)
	}
}

func TestStore_RemoveReactionIdempotent(t *testing.T) {
	s, _ := newSQLStore(t)
	ctx := context.Background()
	_, _ = s.AddReaction(ctx, "1", domain.ReactionUp, "u1", "")
	for i := 0; i < 2; i++ {
		if err := s.RemoveReaction(ctx, "1", "u1"); err != nil {
			t.Fatalf("RemoveReaction: %v", err)
		}
	}
	if got := sqlView(t, s, "1").Reactions.Total(); got != 0 {
		t.Fatalf("total=%d; want 0", got)
	}
}

func TestStore_GetCommentsPagination(t *testing.T) {
	s, clk := newSQLStore(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			clk.Advance(time.Millisecond)
		}
		c, err := s.AddComment(ctx, "1", "n", fmt.Sprintf("t%d", i))
		if err != nil {
			t.Fatalf("AddComment: %v", err)
		}
		want = append(want, c.ID)
	}

	var got []string
	cursor := ""
	for guard := 0; guard < 10; guard++ {
		p, err := s.GetComments(ctx, "1", cursor, 2)
		if err != nil {
			t.Fatalf("GetComments: %v", err)
		}
		for _, c := range p.Items {
			got = append(got, c.ID)
		}
		if p.NextCursor == nil {
			break
		}
		cursor = *p.NextCursor
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("pages=%v; want %v", got, want)
	}

	restart, _ := s.GetComments(ctx, "1", "ghost", 1)
	if len(restart.Items) != 1 || restart.Items[0].ID != want[0] {
		t.Fatalf("unknown cursor should restart: %+v", restart)
	}
}

func TestStore_FingerprintStableThenChanges(t *testing.T) {
	s, clk := newSQLStore(t)
	ctx := context.Background()
	etag := func() string {
		l, err := s.GetAnnouncementsWithAggregates(ctx)
		if err != nil {
			t.Fatalf("aggregates: %v", err)
		}
		return l.ETag
	}
	base := etag()
	if base != etag() {
		t.Fatalf("fingerprint not stable")
	}
	clk.Advance(time.Millisecond)
	_, _ = s.AddComment(ctx, "2", "n", "t")
	if etag() == base {
		t.Fatalf("fingerprint should change after a comment")
	}
}

func TestStore_BackendErrorsAreInternal(t *testing.T) {
	s, _ := newSQLStore(t)
	if err := s.db.Migrator().DropTable(&domain.Comment{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	_, err := s.AddComment(context.Background(), "1", "n", "t")
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected Internal, got %v", err)
	}
	if !strings.Contains(err.Error(), "add comment") {
		t.Fatalf("expected wrapped context in %q", err.Error())
	}
}
