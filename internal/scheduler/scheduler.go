package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidInterval is returned for a non-positive sweep interval.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

// SweepFunc is invoked once per interval with the start of its bucket.
type SweepFunc func(ctx context.Context, bucket time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	RunOnStart   bool
}

// Scheduler drives periodic sweeps. A failed sweep is logged and the loop carries on.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run blocks, invoking sweep at each interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, sweep SweepFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, sweep, s.BucketStart(s.now()))
	}

	next := s.NextTick(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			next = s.NextTick(s.now())
			delay = next.Sub(s.now())
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_bucket", next).Msg("waiting for next sweep")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.execute(ctx, sweep, s.BucketStart(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, sweep SweepFunc, bucket time.Time) {
	started := s.now()
	s.logger.Info().Time("bucket", bucket).Msg("sweep started")
	if err := sweep(ctx, bucket); err != nil {
		s.logger.Error().Err(err).Time("bucket", bucket).Msg("sweep failed")
		return
	}
	s.logger.Info().Time("bucket", bucket).Dur("took", s.now().Sub(started)).Msg("sweep finished")
}

// NextTick returns the next firing time after now.
func (s *Scheduler) NextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

// BucketStart maps a firing time onto its bucket.
func (s *Scheduler) BucketStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
