package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrRevocationListFull is returned when the memory denylist has no room left for a
// new entry. Live entries are never evicted to make room.
var ErrRevocationListFull = errors.New("revocation list is full")

// MemoryRevocationList is a process-local denylist. Entries live at most maxTTL in
// the LRU and are also checked against their own expiry on read. Only correct for
// single-instance deployments and tests.
type MemoryRevocationList struct {
	mu    sync.Mutex
	size  int
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

// NewMemoryRevocationList creates a denylist holding up to size entries. maxTTL should
// be the token lifetime so the LRU never drops an entry that is still needed.
func NewMemoryRevocationList(size int, maxTTL time.Duration, now func() time.Time) *MemoryRevocationList {
	if size <= 0 {
		size = 100000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{
		size:  size,
		cache: expirable.NewLRU[string, time.Time](size, nil, maxTTL),
		now:   now,
	}
}

func (l *MemoryRevocationList) Backend() string { return "memory" }

func (l *MemoryRevocationList) Revoke(_ context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	key := HashToken(token)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Adding to a full LRU would evict the oldest entry, expired or not.
	if !l.cache.Contains(key) && l.cache.Len() >= l.size {
		l.purgeExpired(now)
		if l.cache.Len() >= l.size {
			return ErrRevocationListFull
		}
	}
	l.cache.Add(key, now.Add(remaining))
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, token string) (bool, error) {
	key := HashToken(token)
	expiresAt, ok := l.cache.Get(key)
	if !ok {
		return false, nil
	}
	if !l.now().Before(expiresAt) {
		l.cache.Remove(key)
		return false, nil
	}
	return true, nil
}

func (l *MemoryRevocationList) purgeExpired(now time.Time) {
	for _, key := range l.cache.Keys() {
		if expiresAt, ok := l.cache.Peek(key); ok && !now.Before(expiresAt) {
			l.cache.Remove(key)
		}
	}
}
