package store

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// ledger remembers idempotency keys for a retention window.
//
// Entries carry their insertion time so expiry follows the store clock. The
// cache is created without a janitor; expired entries are dropped only by
// purge, which runs on the aggregate read path.
type ledger struct {
	keys *cache.Cache
	ttl  time.Duration
}

func newLedger(ttl time.Duration) *ledger {
	return &ledger{keys: cache.New(ttl, 0), ttl: ttl}
}

func (l *ledger) seen(key string, now time.Time) bool {
	v, ok := l.keys.Get(key)
	if !ok {
		return false
	}
	rec := domain.IdempotencyRecord{Key: key, InsertedAt: v.(time.Time)}
	return !rec.Expired(now, l.ttl)
}

func (l *ledger) record(key string, now time.Time) {
	l.keys.Set(key, now, l.ttl)
}

// purge drops records older than the window and returns how many went.
func (l *ledger) purge(now time.Time) int {
	l.keys.DeleteExpired()
	n := 0
	for k, it := range l.keys.Items() {
		at, ok := it.Object.(time.Time)
		if !ok || (domain.IdempotencyRecord{Key: k, InsertedAt: at}).Expired(now, l.ttl) {
			l.keys.Delete(k)
			n++
		}
	}
	return n
}

func (l *ledger) size() int { return l.keys.ItemCount() }
