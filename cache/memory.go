package cache

import (
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// MemoryReport describes the cache's estimated footprint relative to the
// owning process.
type MemoryReport struct {
	CacheSizeBytes   int64   `json:"cache_size_bytes"`
	CacheSizeMB      float64 `json:"cache_size_mb"`
	ProcessMemoryMB  float64 `json:"process_memory_mb"`
	CachePercentage  float64 `json:"cache_percentage"`
	EntryCount       int     `json:"entry_count"`
	AverageEntrySize float64 `json:"average_entry_size"`
}

// getProcessRSS returns the resident set size of the current process in bytes
func getProcessRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	if info, err := proc.MemoryInfo(); err == nil {
		return info.RSS
	}
	// Fallback if gopsutil fails
	return 0
}

// MemoryUsage returns a detailed memory report. Process memory comes from
// the OS and is zero when it cannot be read; the cache figures are the same
// estimates Stats tracks.
func (c *Cache) MemoryUsage() MemoryReport {
	c.mu.Lock()
	var total int64
	for _, entry := range c.entries {
		total += entry.Size
	}
	count := len(c.entries)
	c.mu.Unlock()

	report := MemoryReport{
		CacheSizeBytes: total,
		CacheSizeMB:    float64(total) / (1024 * 1024),
		EntryCount:     count,
	}
	if count > 0 {
		report.AverageEntrySize = float64(total) / float64(count)
	}
	if rss := getProcessRSS(); rss > 0 {
		report.ProcessMemoryMB = float64(rss) / (1024 * 1024)
		report.CachePercentage = float64(total) / float64(rss) * 100
	}
	return report
}
