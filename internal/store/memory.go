package store

import (
	"context"
	"sync"

	"github.com/tbourn/announcements-backend/internal/board"
	"github.com/tbourn/announcements-backend/internal/domain"
)

// Memory is the default Store: plain slices behind a RWMutex.
//
// Announcements are kept newest first. Comments and reactions are appended in
// creation order; reactions hold at most one row per (announcement, user).
type Memory struct {
	mu            sync.RWMutex
	announcements []domain.Announcement
	comments      []domain.Comment
	reactions     []domain.Reaction
	seq           int64

	ledger *ledger
	opts   Options
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := NewOptions(opts...)
	return &Memory{
		ledger: newLedger(o.IdempotencyTTL),
		opts:   o,
	}
}

func (m *Memory) nextSeq() int64 {
	m.seq++
	return m.seq
}

func (m *Memory) hasAnnouncement(id string) bool {
	for i := range m.announcements {
		if m.announcements[i].ID == id {
			return true
		}
	}
	return false
}

// tailSeq is one below the lowest announcement Seq, so an appended row still
// sorts last.
func (m *Memory) tailSeq() int64 {
	bottom := int64(1)
	for i := range m.announcements {
		if m.announcements[i].Seq < bottom {
			bottom = m.announcements[i].Seq
		}
	}
	return bottom - 1
}

// Seed appends announcements in the given order.
func (m *Memory) Seed(ctx context.Context, announcements ...domain.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range announcements {
		if a.ID == "" {
			a.ID = m.opts.NewID()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = m.opts.Stamp()
		}
		a.Seq = m.tailSeq()
		m.announcements = append(m.announcements, a)
	}
	return nil
}

// AddAnnouncement creates an announcement and prepends it.
func (m *Memory) AddAnnouncement(ctx context.Context, title string) (*domain.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := domain.Announcement{
		ID:        m.opts.NewID(),
		Title:     title,
		CreatedAt: m.opts.Stamp(),
		Seq:       m.nextSeq(),
	}
	m.announcements = append([]domain.Announcement{a}, m.announcements...)
	return &a, nil
}

// AddComment appends a comment to an existing announcement.
func (m *Memory) AddComment(ctx context.Context, announcementID, authorName, text string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasAnnouncement(announcementID) {
		return nil, AnnouncementNotFound()
	}
	c := domain.Comment{
		ID:             m.opts.NewID(),
		AnnouncementID: announcementID,
		AuthorName:     authorName,
		Text:           text,
		CreatedAt:      m.opts.Stamp(),
		Seq:            m.nextSeq(),
	}
	m.comments = append(m.comments, c)
	return &c, nil
}

// AddReaction sets the user's reaction, replacing any previous one. A key
// already in the ledger short-circuits with Replayed set and no state change.
func (m *Memory) AddReaction(ctx context.Context, announcementID string, t domain.ReactionType, userID, idempotencyKey string) (domain.ReactionResult, error) {
	if userID == "" {
		userID = domain.AnonymousUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasAnnouncement(announcementID) {
		return domain.ReactionResult{}, AnnouncementNotFound()
	}
	now := m.opts.Stamp()
	if idempotencyKey != "" && m.ledger.seen(idempotencyKey, now) {
		return domain.ReactionResult{OK: true, Replayed: true}, nil
	}

	m.reactions = withoutReaction(m.reactions, announcementID, userID)
	m.reactions = append(m.reactions, domain.Reaction{
		AnnouncementID: announcementID,
		UserID:         userID,
		Type:           t,
		CreatedAt:      now,
	})
	if idempotencyKey != "" {
		m.ledger.record(idempotencyKey, now)
	}
	return domain.ReactionResult{OK: true}, nil
}

// RemoveReaction deletes the user's reaction if there is one.
func (m *Memory) RemoveReaction(ctx context.Context, announcementID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = withoutReaction(m.reactions, announcementID, userID)
	return nil
}

// GetComments returns one page of an announcement's comments. Unknown
// announcements simply have no comments.
func (m *Memory) GetComments(ctx context.Context, announcementID, cursor string, limit int) (domain.CommentPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var mine []domain.Comment
	for _, c := range m.comments {
		if c.AnnouncementID == announcementID {
			mine = append(mine, c)
		}
	}
	return board.Paginate(mine, cursor, limit), nil
}

// GetAnnouncementsWithAggregates purges expired idempotency keys, then derives
// the views and their fingerprint from one snapshot.
func (m *Memory) GetAnnouncementsWithAggregates(ctx context.Context) (domain.AnnouncementList, error) {
	m.ledger.purge(m.opts.Stamp())

	m.mu.RLock()
	views := board.Aggregate(board.Snapshot{
		Announcements: m.announcements,
		Comments:      m.comments,
		Reactions:     m.reactions,
	})
	m.mu.RUnlock()

	etag, err := board.Fingerprint(views)
	if err != nil {
		return domain.AnnouncementList{}, domain.Internal(err)
	}
	return domain.AnnouncementList{Views: views, ETag: etag}, nil
}

// SeenIdempotencyKey reports whether key would be treated as a replay.
func (m *Memory) SeenIdempotencyKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	return m.ledger.seen(key, m.opts.Stamp()), nil
}

// withoutReaction filters out the (announcement, user) row in place.
func withoutReaction(rs []domain.Reaction, announcementID, userID string) []domain.Reaction {
	out := rs[:0]
	for _, r := range rs {
		if r.AnnouncementID == announcementID && r.UserID == userID {
			continue
		}
		out = append(out, r)
	}
	return out
}
