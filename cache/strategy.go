package cache

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Strategy selects the eviction policy used when the cache exceeds its
// entry or memory limits.
type Strategy int

const (
	// StrategyLRU evicts the least recently used entry.
	StrategyLRU Strategy = iota
	// StrategyLFU evicts the least frequently used entry. Ties are broken
	// by the smallest insertion sequence among minimum-frequency keys.
	StrategyLFU
	// StrategyFIFO evicts the entry inserted earliest that is still present.
	StrategyFIFO
	// StrategyTTL evicts the entry with the oldest creation time, regardless
	// of how much of its TTL remains.
	StrategyTTL
)

func (s Strategy) String() string {
	switch s {
	case StrategyLRU:
		return "lru"
	case StrategyLFU:
		return "lfu"
	case StrategyFIFO:
		return "fifo"
	case StrategyTTL:
		return "ttl"
	}
	return "unknown"
}

// ParseStrategy converts a strategy name (case-insensitive) into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "lru":
		return StrategyLRU, nil
	case "lfu":
		return StrategyLFU, nil
	case "fifo":
		return StrategyFIFO, nil
	case "ttl":
		return StrategyTTL, nil
	}
	return 0, errors.Newf("cache: unknown strategy: %q", s)
}
