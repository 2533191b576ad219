package forecast

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the content of days. Equal histories give equal
// fingerprints regardless of which source produced them.
func Fingerprint(days []DayProfile) uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	put(uint64(len(days)))
	for i := range days {
		put(uint64(days[i].Date.Unix()))
		for hh := 0; hh < HoursPerDay; hh++ {
			for _, k := range Metrics {
				put(math.Float64bits(days[i].Hours[hh].Get(k)))
			}
		}
	}
	return h.Sum64()
}

// StatisticsCache memoizes BuildStatistics for the most recent dataset.
// Callers replacing the dataset wholesale should call Invalidate; a changed
// fingerprint also forces a rebuild.
type StatisticsCache struct {
	mu    sync.RWMutex
	key   uint64
	stats *Statistics
	hits  int
	built int
}

// NewStatisticsCache returns an empty cache.
func NewStatisticsCache() *StatisticsCache {
	return &StatisticsCache{}
}

// Statistics returns the cached baseline for days, building it on a miss.
func (c *StatisticsCache) Statistics(days []DayProfile) *Statistics {
	key := Fingerprint(days)

	c.mu.RLock()
	if c.stats != nil && c.key == key {
		stats := c.stats
		c.mu.RUnlock()
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return stats
	}
	c.mu.RUnlock()

	stats := BuildStatistics(days)

	c.mu.Lock()
	c.key = key
	c.stats = stats
	c.built++
	c.mu.Unlock()
	return stats
}

// Invalidate drops the cached baseline.
func (c *StatisticsCache) Invalidate() {
	c.mu.Lock()
	c.stats = nil
	c.key = 0
	c.mu.Unlock()
}

// Counters reports cache hits and builds since construction.
func (c *StatisticsCache) Counters() (hits, builds int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.built
}
