package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per bucket. bucket is the start of the interval in
// the scheduler's location.
type TickFunc func(ctx context.Context, bucket time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// SettleDelay postpones each tick past the bucket boundary so the
	// upstream export has time to land the previous hour.
	SettleDelay  time.Duration
	StartupDelay time.Duration
	// Location aligns buckets to local wall-clock boundaries. Nil means UTC.
	Location *time.Location
	// RunImmediately fires a tick for the current bucket right after the startup delay.
	RunImmediately bool
}

// Scheduler drives aligned execution of pacing checks.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks, invoking the tick function at each aligned interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunImmediately {
		s.fire(ctx, tick, s.BucketStart(s.now()))
	}

	bucket := s.NextBucket(s.now())
	for {
		fireAt := bucket.Add(s.opts.SettleDelay)
		delay := fireAt.Sub(s.now())
		if delay < 0 {
			// fell behind (suspend, slow tick): skip to the next boundary
			bucket = s.NextBucket(s.now())
			fireAt = bucket.Add(s.opts.SettleDelay)
			delay = fireAt.Sub(s.now())
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_bucket", bucket).Time("fire_at", fireAt).Msg("waiting for next bucket")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		s.fire(ctx, tick, bucket)
		bucket = s.NextBucket(bucket)
	}
}

func (s *Scheduler) fire(ctx context.Context, tick TickFunc, bucket time.Time) {
	s.logger.Info().Time("bucket", bucket).Msg("executing scheduled tick")
	if err := tick(ctx, bucket); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("tick execution failed")
	}
}

// NextBucket returns the first bucket boundary strictly after t.
func (s *Scheduler) NextBucket(t time.Time) time.Time {
	return s.BucketStart(t).Add(s.opts.Interval)
}

// BucketStart truncates t to the interval measured from local midnight.
func (s *Scheduler) BucketStart(t time.Time) time.Time {
	local := t.In(s.opts.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.opts.Location)
	return midnight.Add(local.Sub(midnight).Truncate(s.opts.Interval))
}
