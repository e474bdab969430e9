package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsInvalidOptions(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("zero interval without cron should fail")
	}
	if _, err := New(Options{Cron: "not a cron"}, zerolog.Nop()); err == nil {
		t.Fatal("invalid cron expression should fail")
	}
}

func TestNextAligned(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC)
	if got := s.Next(now); !got.Equal(time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected next aligned hour, got %s", got)
	}

	onBoundary := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if got := s.Next(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("tick on boundary should move to the following bucket, got %s", got)
	}
}

func TestNextUnaligned(t *testing.T) {
	s, _ := New(Options{Interval: 10 * time.Minute}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC)
	if got := s.Next(now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected next tick %s", got)
	}
}

func TestNextCron(t *testing.T) {
	s, err := New(Options{Cron: "*/15 * * * *", Interval: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC)
	if got := s.Next(now); !got.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected 10:30, got %s", got)
	}
	if got := s.advance(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)); !got.Equal(time.Date(2024, 5, 1, 10, 45, 0, 0, time.UTC)) {
		t.Fatalf("expected 10:45, got %s", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ticks := 0
	err := s.Run(ctx, func(ctx context.Context, tick time.Time) error {
		ticks++
		if ticks == 2 {
			cancel()
		}
		return errors.New("tick errors are logged, not fatal")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ticks != 2 {
		t.Fatalf("expected 2 ticks, got %d", ticks)
	}
}
