package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatisticsCache(t *testing.T) {
	days := []DayProfile{uniformDay(t, mondays[0]), uniformDay(t, mondays[1])}
	cache := NewStatisticsCache()

	first := cache.Statistics(days)
	again := cache.Statistics(append([]DayProfile(nil), days...))
	assert.Same(t, first, again, "equal content reuses the build")

	hits, builds := cache.Counters()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, builds)

	changed := append([]DayProfile(nil), days...)
	changed[1].Hours[5].Revenue = 11
	rebuilt := cache.Statistics(changed)
	assert.NotSame(t, first, rebuilt)

	cache.Invalidate()
	afterInvalidate := cache.Statistics(changed)
	assert.NotSame(t, rebuilt, afterInvalidate)

	_, builds = cache.Counters()
	assert.Equal(t, 3, builds)
}

func TestFingerprint(t *testing.T) {
	a := []DayProfile{uniformDay(t, mondays[0])}
	b := []DayProfile{uniformDay(t, mondays[0])}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b[0].Hours[23].Clicks = 1
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(nil), Fingerprint(a))
}
