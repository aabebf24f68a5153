package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestPolitenessFirstQueryImmediate(t *testing.T) {
	p := newPoliteness(time.Second, time.Second)
	start := time.Now()
	if err := p.wait(context.Background(), slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first wait took %v, want immediate", elapsed)
	}
}

func TestPolitenessSpacesQueries(t *testing.T) {
	p := newPoliteness(80*time.Millisecond, 80*time.Millisecond)
	ctx := context.Background()

	if err := p.wait(ctx, slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	start := time.Now()
	if err := p.wait(ctx, slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("second wait took %v, want at least the configured delay", elapsed)
	}
}

func TestPolitenessCooldown(t *testing.T) {
	p := newPoliteness(0, 0)
	ctx := context.Background()

	if err := p.wait(ctx, slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	p.cooldown(100*time.Millisecond, slog.Default())

	start := time.Now()
	if err := p.wait(ctx, slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("wait after cooldown took %v, want the cooldown honored", elapsed)
	}
}

func TestPolitenessCancellation(t *testing.T) {
	p := newPoliteness(time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.wait(ctx, slog.Default()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.wait(ctx, slog.Default())
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after cancellation")
	}
}
