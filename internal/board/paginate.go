package board

import (
	"sort"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// Comment page size bounds. Transport code clamps caller input to
// [1, MaxCommentLimit]; Paginate itself only guards against non-positive
// limits.
const (
	DefaultCommentLimit = 10
	MaxCommentLimit     = 50
)

// SortComments orders cs by CreatedAt ascending. Exact ties fall back to
// Seq, then to the incoming order, so creation order is always preserved.
func SortComments(cs []domain.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
}

// Paginate returns the page of comments that follows cursor.
//
// comments must all belong to one announcement; they need not be sorted.
// The cursor is the id of the last item of the previous page. An empty or
// unknown cursor starts from the beginning. NextCursor is set to the last
// returned id only when the page is full, signalling that more items may
// follow; a short page ends the collection.
func Paginate(comments []domain.Comment, cursor string, limit int) domain.CommentPage {
	if limit < 1 {
		limit = DefaultCommentLimit
	}

	all := make([]domain.Comment, len(comments))
	copy(all, comments)
	SortComments(all)

	start := 0
	if cursor != "" {
		for i := range all {
			if all[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	items := all[start:end:end]

	page := domain.CommentPage{Items: items}
	if len(items) == limit {
		next := items[len(items)-1].ID
		page.NextCursor = &next
	}
	return page
}
