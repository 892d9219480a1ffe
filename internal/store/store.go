// Package store defines the announcements store contract and its default
// in-memory implementation.
//
// A Store owns four collections: announcements, comments, reactions and the
// idempotency-key ledger. Writes are serialized; each read observes a
// consistent snapshot. Derived views are computed on every read by package
// board, so a backend only has to hand over its raw rows.
//
// Error semantics:
//   - Unknown announcement ids on comment or reaction writes return a
//     *domain.Error of kind NotFound.
//   - RemoveReaction never fails on a missing row.
//   - A replayed idempotency key is reported through ReactionResult.Replayed,
//     never as an error.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// DefaultIdempotencyTTL is how long a reaction idempotency key is remembered.
const DefaultIdempotencyTTL = 5 * time.Minute

// Store is implemented by every backend (memory, SQL).
type Store interface {
	AddAnnouncement(ctx context.Context, title string) (*domain.Announcement, error)
	AddComment(ctx context.Context, announcementID, authorName, text string) (*domain.Comment, error)
	AddReaction(ctx context.Context, announcementID string, t domain.ReactionType, userID, idempotencyKey string) (domain.ReactionResult, error)
	RemoveReaction(ctx context.Context, announcementID, userID string) error
	GetComments(ctx context.Context, announcementID, cursor string, limit int) (domain.CommentPage, error)
	GetAnnouncementsWithAggregates(ctx context.Context) (domain.AnnouncementList, error)

	// SeenIdempotencyKey reports whether key is recorded and unexpired. The
	// transport uses it to let retries through the rate limiter.
	SeenIdempotencyKey(ctx context.Context, key string) (bool, error)

	// Seed appends announcements after any existing ones, preserving the
	// given order. Zero CreatedAt values are stamped with the store clock.
	Seed(ctx context.Context, announcements ...domain.Announcement) error
}

// Options are shared by all backends.
type Options struct {
	Now            func() time.Time
	NewID          func() string
	IdempotencyTTL time.Duration
}

// Option configures a backend.
type Option func(*Options)

// WithClock overrides the wall clock. Useful in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithIDGenerator overrides UUID generation for new rows.
func WithIDGenerator(gen func() string) Option {
	return func(o *Options) { o.NewID = gen }
}

// WithIdempotencyTTL sets the ledger retention window. Non-positive values
// keep the default.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.IdempotencyTTL = ttl
		}
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		Now:            time.Now,
		NewID:          uuid.NewString,
		IdempotencyTTL: DefaultIdempotencyTTL,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Stamp returns the current store time: UTC at millisecond resolution.
func (o Options) Stamp() time.Time {
	return o.Now().UTC().Truncate(time.Millisecond)
}

// DemoAnnouncements returns the announcements a fresh demo board starts with.
func DemoAnnouncements() []domain.Announcement {
	return []domain.Announcement{
		{ID: "1", Title: "Water supply maintenance on Friday"},
		{ID: "2", Title: "Gym closed for cleaning"},
	}
}

// AnnouncementNotFound is the error every backend returns for an unknown
// announcement id.
func AnnouncementNotFound() *domain.Error { return domain.NotFound("Announcement") }
