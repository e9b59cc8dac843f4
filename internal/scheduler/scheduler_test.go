package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsZeroInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNextTickAligned(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 5, 1, 10, 20, 0, 0, time.UTC)
	if got := s.NextTick(now); !got.Equal(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("next tick = %s", got)
	}
	onBoundary := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if got := s.NextTick(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("tick on boundary must move forward, got %s", got)
	}
	if got := s.BucketStart(now); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket = %s", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s, err := New(Options{Interval: 15 * time.Minute}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 5, 1, 10, 20, 7, 0, time.UTC)
	if got := s.NextTick(now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("next tick = %s", got)
	}
	if !s.BucketStart(now).Equal(now) {
		t.Fatal("unaligned bucket must equal firing time")
	}
}

func TestRunOnStartSurvivesFailedSweep(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			calls.Add(1)
			cancel()
			return errors.New("boom")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if calls.Load() != 1 {
		t.Fatalf("sweep calls = %d, want 1", calls.Load())
	}
}
