package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStartInLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+30*60)
	s := New(Options{Interval: time.Hour, Location: kolkata}, zerolog.Nop())

	// 08:47 UTC is 14:17 IST; the local bucket starts at 14:00 IST (08:30 UTC).
	now := time.Date(2024, 3, 4, 8, 47, 0, 0, time.UTC)
	bucket := s.BucketStart(now)
	assert.Equal(t, 14, bucket.Hour())
	assert.Equal(t, 0, bucket.Minute())
	assert.True(t, bucket.Equal(time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)))

	next := s.NextBucket(now)
	assert.Equal(t, 15, next.Hour())

	// Exactly on a boundary the next bucket is one interval later.
	assert.True(t, s.NextBucket(bucket).Equal(bucket.Add(time.Hour)))
}

func TestBucketStartUTCDefault(t *testing.T) {
	s := New(Options{Interval: 15 * time.Minute}, zerolog.Nop())
	got := s.BucketStart(time.Date(2024, 3, 4, 10, 44, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), got)
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { New(Options{}, zerolog.Nop()) })
}

func TestRunImmediatelyThenCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunImmediately: true}, zerolog.Nop())
	fixed := time.Date(2024, 3, 4, 10, 20, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu      sync.Mutex
		buckets []time.Time
	)
	err := s.Run(ctx, func(_ context.Context, bucket time.Time) error {
		mu.Lock()
		buckets = append(buckets, bucket)
		mu.Unlock()
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, buckets, 1)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), buckets[0])
}
