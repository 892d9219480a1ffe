package repo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/announcements-backend/internal/board"
	"github.com/tbourn/announcements-backend/internal/domain"
	"github.com/tbourn/announcements-backend/internal/store"
)

// Store is the SQL implementation of store.Store.
//
// Every operation runs in one transaction. A RWMutex serializes writers and
// lets readers share, mirroring the memory backend; the transaction gives each
// read its consistent snapshot.
type Store struct {
	db   *gorm.DB
	mu   sync.RWMutex
	opts store.Options
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an opened and migrated database.
func NewStore(db *gorm.DB, opts ...store.Option) *Store {
	return &Store{db: db, opts: store.NewOptions(opts...)}
}

// mapErr passes *domain.Error through and wraps everything else as Internal.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.Internal(errors.Wrap(err, op))
}

func (s *Store) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapErr(s.db.WithContext(ctx).Transaction(fn), op)
}

func (s *Store) read(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapErr(s.db.WithContext(ctx).Transaction(fn), op)
}

// Seed appends announcements after the existing ones, in order.
func (s *Store) Seed(ctx context.Context, announcements ...domain.Announcement) error {
	return s.write(ctx, "seed announcements", func(tx *gorm.DB) error {
		for _, a := range announcements {
			a := a
			if a.ID == "" {
				a.ID = s.opts.NewID()
			}
			if a.CreatedAt.IsZero() {
				a.CreatedAt = s.opts.Stamp()
			}
			if err := AppendAnnouncement(ctx, tx, &a); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddAnnouncement inserts a new announcement at the head of the list.
func (s *Store) AddAnnouncement(ctx context.Context, title string) (*domain.Announcement, error) {
	a := &domain.Announcement{ID: s.opts.NewID(), Title: title, CreatedAt: s.opts.Stamp()}
	err := s.write(ctx, "add announcement", func(tx *gorm.DB) error {
		return CreateAnnouncement(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AddComment appends a comment to an existing announcement.
func (s *Store) AddComment(ctx context.Context, announcementID, authorName, text string) (*domain.Comment, error) {
	c := &domain.Comment{
		ID:             s.opts.NewID(),
		AnnouncementID: announcementID,
		AuthorName:     authorName,
		Text:           text,
		CreatedAt:      s.opts.Stamp(),
	}
	err := s.write(ctx, "add comment", func(tx *gorm.DB) error {
		ok, err := AnnouncementExists(ctx, tx, announcementID)
		if err != nil {
			return err
		}
		if !ok {
			return store.AnnouncementNotFound()
		}
		return CreateComment(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddReaction replaces the user's reaction unless idempotencyKey is a replay.
func (s *Store) AddReaction(ctx context.Context, announcementID string, t domain.ReactionType, userID, idempotencyKey string) (domain.ReactionResult, error) {
	if userID == "" {
		userID = domain.AnonymousUser
	}
	now := s.opts.Stamp()
	res := domain.ReactionResult{OK: true}

	err := s.write(ctx, "add reaction", func(tx *gorm.DB) error {
		ok, err := AnnouncementExists(ctx, tx, announcementID)
		if err != nil {
			return err
		}
		if !ok {
			return store.AnnouncementNotFound()
		}
		if idempotencyKey != "" {
			_, err := GetIdempotency(ctx, tx, idempotencyKey, now, s.opts.IdempotencyTTL)
			switch {
			case err == nil:
				res.Replayed = true
				return nil
			case !errors.Is(err, ErrNotFound):
				return err
			}
		}
		r := &domain.Reaction{AnnouncementID: announcementID, UserID: userID, Type: t, CreatedAt: now}
		if err := ReplaceReaction(ctx, tx, r); err != nil {
			return err
		}
		if idempotencyKey != "" {
			if _, err := PutIdempotency(ctx, tx, idempotencyKey, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ReactionResult{}, err
	}
	return res, nil
}

// RemoveReaction deletes the user's reaction; a missing row is fine.
func (s *Store) RemoveReaction(ctx context.Context, announcementID, userID string) error {
	return s.write(ctx, "remove reaction", func(tx *gorm.DB) error {
		_, err := DeleteReaction(ctx, tx, announcementID, userID)
		return err
	})
}

// GetComments returns one page of an announcement's comments.
func (s *Store) GetComments(ctx context.Context, announcementID, cursor string, limit int) (domain.CommentPage, error) {
	var page domain.CommentPage
	err := s.read(ctx, "list comments", func(tx *gorm.DB) error {
		cs, err := ListComments(ctx, tx, announcementID)
		if err != nil {
			return err
		}
		normalizeComments(cs)
		page = board.Paginate(cs, cursor, limit)
		return nil
	})
	return page, err
}

// GetAnnouncementsWithAggregates purges expired idempotency records, then
// derives views and fingerprint from one read transaction.
func (s *Store) GetAnnouncementsWithAggregates(ctx context.Context) (domain.AnnouncementList, error) {
	cutoff := s.opts.Stamp().Add(-s.opts.IdempotencyTTL)
	if err := s.write(ctx, "purge idempotency", func(tx *gorm.DB) error {
		_, err := PurgeIdempotency(ctx, tx, cutoff)
		return err
	}); err != nil {
		return domain.AnnouncementList{}, err
	}

	var snap board.Snapshot
	err := s.read(ctx, "list announcements", func(tx *gorm.DB) error {
		var err error
		if snap.Announcements, err = ListAnnouncements(ctx, tx); err != nil {
			return err
		}
		if snap.Comments, err = ListAllComments(ctx, tx); err != nil {
			return err
		}
		snap.Reactions, err = ListReactions(ctx, tx)
		return err
	})
	if err != nil {
		return domain.AnnouncementList{}, err
	}
	normalizeSnapshot(&snap)

	views := board.Aggregate(snap)
	etag, err := board.Fingerprint(views)
	if err != nil {
		return domain.AnnouncementList{}, mapErr(err, "fingerprint")
	}
	return domain.AnnouncementList{Views: views, ETag: etag}, nil
}

// SeenIdempotencyKey reports whether key is recorded and unexpired.
func (s *Store) SeenIdempotencyKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	seen := false
	err := s.read(ctx, "lookup idempotency", func(tx *gorm.DB) error {
		_, err := GetIdempotency(ctx, tx, key, s.opts.Stamp(), s.opts.IdempotencyTTL)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		seen = err == nil
		return err
	})
	return seen, err
}

// SQLite hands times back with a fixed +00:00 zone; pin them to UTC so both
// backends serialize identically.
func normalizeSnapshot(s *board.Snapshot) {
	for i := range s.Announcements {
		s.Announcements[i].CreatedAt = s.Announcements[i].CreatedAt.UTC()
	}
	normalizeComments(s.Comments)
	for i := range s.Reactions {
		s.Reactions[i].CreatedAt = s.Reactions[i].CreatedAt.UTC()
	}
}

func normalizeComments(cs []domain.Comment) {
	for i := range cs {
		cs[i].CreatedAt = cs[i].CreatedAt.UTC()
	}
}
