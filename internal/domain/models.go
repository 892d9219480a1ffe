// Package domain defines the core models for the announcements board: the
// stored entities (announcements, comments, reactions, idempotency records)
// and the read-side shapes derived from them. The stored types carry GORM
// tags so the SQL-backed store can migrate them directly; the in-memory store
// uses them as plain values.
package domain

import (
	"strings"
	"time"
)

// AnonymousUser is the user id recorded for reactions submitted without one.
const AnonymousUser = "anonymous"

// ReactionType enumerates the reactions a user can leave on an announcement.
type ReactionType string

const (
	ReactionUp    ReactionType = "up"
	ReactionDown  ReactionType = "down"
	ReactionHeart ReactionType = "heart"
)

// Valid reports whether t is one of the known reaction types.
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionUp, ReactionDown, ReactionHeart:
		return true
	}
	return false
}

// ParseReactionType trims and lower-cases s and returns the matching type.
// The second value is false when s names no known reaction.
func ParseReactionType(s string) (ReactionType, bool) {
	t := ReactionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Announcement is a board post. It is immutable once created; everything
// that changes over time (comment count, reactions, activity) is derived.
//
// Fields:
//   - ID: generated identifier (UUID for created rows, free-form for seeds).
//   - Title: 1–200 characters after trimming.
//   - CreatedAt: UTC, millisecond resolution.
//   - Seq: storage position; a higher Seq sits nearer the head of the list.
//     Seeded rows are appended below the current minimum. Not exposed over JSON.
type Announcement struct {
	ID        string    `json:"id"        gorm:"type:varchar(64);primaryKey"`
	Title     string    `json:"title"     gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	Seq       int64     `json:"-"         gorm:"not null;index:idx_announcements_seq"`
}

// TableName returns the database table name for Announcement.
func (Announcement) TableName() string { return "announcements" }

// Comment is a reader's reply to an announcement. Comments are append-only.
//
// Seq records insertion order so that comments sharing a CreatedAt value keep
// the order in which they were created.
type Comment struct {
	ID             string    `json:"id"             gorm:"type:varchar(64);primaryKey"`
	AnnouncementID string    `json:"announcementId" gorm:"type:varchar(64);not null;index:idx_comments_announcement,priority:1"`
	AuthorName     string    `json:"authorName"     gorm:"type:varchar(100);not null"`
	Text           string    `json:"text"           gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"not null;index:idx_comments_announcement,priority:2"`
	Seq            int64     `json:"-"              gorm:"not null"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Reaction is a single user's reaction to an announcement. The composite
// primary key (announcement_id, user_id) keeps at most one row per user.
type Reaction struct {
	AnnouncementID string       `json:"announcementId" gorm:"type:varchar(64);primaryKey"`
	UserID         string       `json:"userId"         gorm:"type:varchar(128);primaryKey"`
	Type           ReactionType `json:"type"           gorm:"type:varchar(8);not null;check:type IN ('up','down','heart')"`
	CreatedAt      time.Time    `json:"createdAt"      gorm:"not null"`
}

// TableName returns the database table name for Reaction.
func (Reaction) TableName() string { return "reactions" }

// ReactionCounts tallies reactions by type.
type ReactionCounts struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Heart int `json:"heart"`
}

// Add increments the counter for t. Unknown types are ignored.
func (rc *ReactionCounts) Add(t ReactionType) {
	switch t {
	case ReactionUp:
		rc.Up++
	case ReactionDown:
		rc.Down++
	case ReactionHeart:
		rc.Heart++
	}
}

// Total returns the number of reactions across all types.
func (rc ReactionCounts) Total() int { return rc.Up + rc.Down + rc.Heart }

// AnnouncementView is the derived, display-ready aggregate of one
// announcement. It is computed on every read and never stored.
type AnnouncementView struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	CommentCount   int            `json:"commentCount"`
	Reactions      ReactionCounts `json:"reactions"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
}

// AnnouncementList is the result of an aggregate read: the derived views in
// storage order and the fingerprint of their serialized form.
type AnnouncementList struct {
	Views []AnnouncementView
	ETag  string
}

// CommentPage is one cursor page of comments. NextCursor is nil when the end
// of the collection has been reached.
type CommentPage struct {
	Items      []Comment `json:"items"`
	NextCursor *string   `json:"nextCursor"`
}

// ReactionResult acknowledges a reaction write. Replayed is true when the
// write was absorbed by an already-recorded idempotency key.
type ReactionResult struct {
	OK       bool `json:"ok"`
	Replayed bool `json:"-"`
}
