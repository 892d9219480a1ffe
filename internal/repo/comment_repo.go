package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// CreateComment inserts c with the next insertion sequence number.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	var top int64
	if err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&top).Error; err != nil {
		return err
	}
	c.Seq = top + 1
	return db.WithContext(ctx).Create(c).Error
}

// ListComments returns the comments of one announcement in creation order.
func ListComments(ctx context.Context, db *gorm.DB, announcementID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("announcement_id = ?", announcementID).
		Order("seq asc").
		Find(&out).Error
	return out, err
}

// ListAllComments returns every stored comment in creation order.
func ListAllComments(ctx context.Context, db *gorm.DB) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Order("seq asc").
		Find(&out).Error
	return out, err
}
