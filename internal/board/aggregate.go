// Package board holds the read-side derivations shared by every store
// backend: per-announcement aggregates, the fingerprint used for conditional
// reads, and cursor pagination over comments.
//
// Everything here is a pure function over a Snapshot. Backends are
// responsible for taking the snapshot consistently; this package never
// retains state between calls.
package board

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// Snapshot is a consistent view of the three stored collections.
// Announcements must be in storage order (newest first).
type Snapshot struct {
	Announcements []domain.Announcement
	Comments      []domain.Comment
	Reactions     []domain.Reaction
}

// Aggregate derives one AnnouncementView per announcement, preserving the
// snapshot's announcement order.
//
// LastActivityAt is the latest of the announcement's own CreatedAt, its newest
// comment and its newest reaction.
func Aggregate(s Snapshot) []domain.AnnouncementView {
	type acc struct {
		comments  int
		reactions domain.ReactionCounts
		last      time.Time
	}
	idx := make(map[string]*acc, len(s.Announcements))
	for _, a := range s.Announcements {
		idx[a.ID] = &acc{last: a.CreatedAt}
	}

	for _, c := range s.Comments {
		a, ok := idx[c.AnnouncementID]
		if !ok {
			continue
		}
		a.comments++
		if c.CreatedAt.After(a.last) {
			a.last = c.CreatedAt
		}
	}
	for _, r := range s.Reactions {
		a, ok := idx[r.AnnouncementID]
		if !ok {
			continue
		}
		a.reactions.Add(r.Type)
		if r.CreatedAt.After(a.last) {
			a.last = r.CreatedAt
		}
	}

	out := make([]domain.AnnouncementView, 0, len(s.Announcements))
	for _, a := range s.Announcements {
		v := idx[a.ID]
		out = append(out, domain.AnnouncementView{
			ID:             a.ID,
			Title:          a.Title,
			CommentCount:   v.comments,
			Reactions:      v.reactions,
			LastActivityAt: v.last,
		})
	}
	return out
}

// Fingerprint returns a hex xxh3-128 digest of the JSON encoding of views.
// Equal inputs always give equal fingerprints; any change to any view changes
// the serialized bytes and therefore the digest.
func Fingerprint(views []domain.AnnouncementView) (string, error) {
	if views == nil {
		views = []domain.AnnouncementView{}
	}
	b, err := json.Marshal(views)
	if err != nil {
		return "", err
	}
	sum := xxh3.Hash128(b).Bytes()
	return hex.EncodeToString(sum[:]), nil
}
