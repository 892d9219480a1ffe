package domain

import "time"

// IdempotencyRecord remembers that a reaction write carrying Key has already
// been applied. While the record is younger than the retention window, any
// further write with the same key is acknowledged without effect.
type IdempotencyRecord struct {
	Key        string    `gorm:"type:varchar(200);primaryKey"`
	InsertedAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency_keys" }

// Expired reports whether the record is older than ttl at now.
func (r IdempotencyRecord) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.InsertedAt) > ttl
}
