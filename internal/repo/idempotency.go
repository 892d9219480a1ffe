package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// GetIdempotency returns the record for key if it is younger than ttl at now,
// or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time, ttl time.Duration) (*domain.IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("key = ?", key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Expired(now, ttl) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// PutIdempotency records key at now. A stale row left behind for the same key
// is overwritten rather than reported as a duplicate.
func PutIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.IdempotencyRecord, error) {
	rec := &domain.IdempotencyRecord{Key: key, InsertedAt: now}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"inserted_at"}),
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PurgeIdempotency deletes records inserted before cutoff and returns how
// many were removed.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("inserted_at < ?", cutoff).
		Delete(&domain.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}
