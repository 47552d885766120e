package cache

import "time"

// Entry is a single cached value with its lifecycle metadata.
type Entry struct {
	Key          string
	Value        any
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	TTL          time.Duration
	Size         int64
	Tags         map[string]struct{}
}

// Expired reports whether the entry's TTL has elapsed as of now.
// Entries with no TTL never expire.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > e.TTL
}

func (e *Entry) touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}

// Stats holds the aggregate counters for a cache instance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	MemoryUsage int64
	EntryCount  int
}

// HitRate returns hits/(hits+misses), or 0 when no requests have been made.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// MemoryUsageMB returns the tracked memory usage in mebibytes.
func (s Stats) MemoryUsageMB() float64 {
	return float64(s.MemoryUsage) / (1024 * 1024)
}
