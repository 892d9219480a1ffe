package domain

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the wire form of every timestamp: UTC with exactly three
// fractional digits, so timestamps compare lexically in chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// The MarshalJSON methods below shadow the embedded time.Time field with its
// fixed-width string form. Decoding keeps the default behaviour, which
// accepts that form.

// MarshalJSON implements json.Marshaler.
func (a Announcement) MarshalJSON() ([]byte, error) {
	type plain Announcement
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"createdAt"`
	}{plain(a), FormatTimestamp(a.CreatedAt)})
}

// MarshalJSON implements json.Marshaler.
func (c Comment) MarshalJSON() ([]byte, error) {
	type plain Comment
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"createdAt"`
	}{plain(c), FormatTimestamp(c.CreatedAt)})
}

// MarshalJSON implements json.Marshaler.
func (r Reaction) MarshalJSON() ([]byte, error) {
	type plain Reaction
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"createdAt"`
	}{plain(r), FormatTimestamp(r.CreatedAt)})
}

// MarshalJSON implements json.Marshaler.
func (v AnnouncementView) MarshalJSON() ([]byte, error) {
	type plain AnnouncementView
	return json.Marshal(struct {
		plain
		LastActivityAt string `json:"lastActivityAt"`
	}{plain(v), FormatTimestamp(v.LastActivityAt)})
}
