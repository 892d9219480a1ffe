package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// ReplaceReaction deletes any row for (r.AnnouncementID, r.UserID) and
// inserts r. Callers run it inside a transaction.
func ReplaceReaction(ctx context.Context, db *gorm.DB, r *domain.Reaction) error {
	if _, err := DeleteReaction(ctx, db, r.AnnouncementID, r.UserID); err != nil {
		return err
	}
	return db.WithContext(ctx).Create(r).Error
}

// DeleteReaction removes the (announcementID, userID) row and returns the
// number of rows affected. A missing row is not an error.
func DeleteReaction(ctx context.Context, db *gorm.DB, announcementID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("announcement_id = ? AND user_id = ?", announcementID, userID).
		Delete(&domain.Reaction{})
	return res.RowsAffected, res.Error
}

// ListReactions returns every stored reaction.
func ListReactions(ctx context.Context, db *gorm.DB) ([]domain.Reaction, error) {
	var out []domain.Reaction
	err := db.WithContext(ctx).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
