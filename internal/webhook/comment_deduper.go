package webhook

import (
	"sync"
	"time"
)

// commentDeduper drops redelivered comment events. GitHub retries deliveries
// it believes failed, and every retry carries the same comment ID.
type commentDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int64]time.Time
}

func newCommentDeduper(ttl time.Duration) *commentDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &commentDeduper{
		ttl:  ttl,
		seen: make(map[int64]time.Time),
	}
}

// markIfNew records id and reports whether it was unseen. Expired entries are
// swept on each call so the map stays bounded by live traffic.
func (d *commentDeduper) markIfNew(id int64) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, key)
		}
	}

	if expiry, ok := d.seen[id]; ok && now.Before(expiry) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	return true
}
