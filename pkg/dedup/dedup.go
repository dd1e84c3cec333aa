package dedup

import (
	"sync"
	"time"
)

// Deduper remembers keys for a TTL window. The ingest service uses it to
// throttle red-alert notifications so a farm flapping red does not re-notify
// on every reading.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether key was not seen within the TTL window and
// marks it seen. An empty key is always processed.
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.pruneLocked(now)
	}
	return true
}

// Seen reports whether key is still within the TTL window, without marking
// it. Pair with Mark when the caller only wants to remember successes.
func (d *Deduper) Seen(key string) bool {
	if key == "" {
		return false
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.seen[key]
	return ok && now.Before(exp)
}

// Mark records key for the TTL window.
func (d *Deduper) Mark(key string) {
	if key == "" {
		return
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.pruneLocked(now)
	}
}

// pruneLocked evicts expired entries; caller holds the lock.
func (d *Deduper) pruneLocked(now time.Time) {
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
		if len(d.seen) <= d.max {
			return
		}
	}
}
