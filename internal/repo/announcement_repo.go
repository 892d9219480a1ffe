package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateAnnouncement inserts a at the head of the list: its Seq is one above
// the current maximum.
func CreateAnnouncement(ctx context.Context, db *gorm.DB, a *domain.Announcement) error {
	var top int64
	if err := db.WithContext(ctx).
		Model(&domain.Announcement{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&top).Error; err != nil {
		return err
	}
	a.Seq = top + 1
	return db.WithContext(ctx).Create(a).Error
}

// AppendAnnouncement inserts a at the tail of the list: its Seq is one below
// the current minimum.
func AppendAnnouncement(ctx context.Context, db *gorm.DB, a *domain.Announcement) error {
	var bottom int64
	if err := db.WithContext(ctx).
		Model(&domain.Announcement{}).
		Select("COALESCE(MIN(seq), 1)").
		Scan(&bottom).Error; err != nil {
		return err
	}
	a.Seq = bottom - 1
	return db.WithContext(ctx).Create(a).Error
}

// ListAnnouncements returns every announcement, newest first.
func ListAnnouncements(ctx context.Context, db *gorm.DB) ([]domain.Announcement, error) {
	var out []domain.Announcement
	err := db.WithContext(ctx).
		Order("seq desc").
		Find(&out).Error
	return out, err
}

// AnnouncementExists reports whether an announcement with id is stored.
func AnnouncementExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Announcement{}).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}
