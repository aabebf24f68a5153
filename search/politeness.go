package search

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// politeness spaces search queries with a randomized delay and honors
// backend cooldowns. One limiter is shared across all queries and all
// vendors so that back-to-back records never burst against the engine.
type politeness struct {
	mu            sync.Mutex
	last          time.Time
	cooldownUntil time.Time
	minDelay      time.Duration
	maxDelay      time.Duration
}

func newPoliteness(minDelay, maxDelay time.Duration) *politeness {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &politeness{minDelay: minDelay, maxDelay: maxDelay}
}

// wait blocks until the next query is allowed. Returns early with the
// context error on cancellation.
func (p *politeness) wait(ctx context.Context, logger *slog.Logger) error {
	p.mu.Lock()
	now := time.Now()

	var until time.Time
	if !p.last.IsZero() {
		delay := p.minDelay
		if span := p.maxDelay - p.minDelay; span > 0 {
			delay += time.Duration(rand.Int64N(int64(span)))
		}
		until = p.last.Add(delay)
	}
	if p.cooldownUntil.After(until) {
		until = p.cooldownUntil
	}

	wait := until.Sub(now)
	// Reserve the slot before sleeping so concurrent callers queue up.
	if wait > 0 {
		p.last = until
	} else {
		p.last = now
	}
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	logger.Debug("search pause", "wait", wait.Round(time.Millisecond))
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cooldown pushes out the next allowed query after the engine pushed back.
func (p *politeness) cooldown(d time.Duration, logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(p.cooldownUntil) {
		p.cooldownUntil = until
		logger.Warn("search backend cooling down", "duration", d)
	}
}
