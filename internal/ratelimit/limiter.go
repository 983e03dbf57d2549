// Package ratelimit throttles requests per client address in fixed windows.
// Counters live in a Store, either in process memory or in Redis when
// several instances share the load.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store counts hits per key inside a fixed window.
type Store interface {
	// Hit records one request for key and returns the count in the
	// current window and the time that window ends.
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error)
}

// Rule is a named request budget.
type Rule struct {
	Name    string
	Max     int
	Window  time.Duration
	Message string
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies one Rule against a Store.
type Limiter struct {
	rule  Rule
	store Store
	now   func() time.Time
}

// New returns a limiter for rule.
func New(store Store, rule Rule) *Limiter {
	return &Limiter{rule: rule, store: store, now: time.Now}
}

// WithClock replaces time.Now and returns l.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Rule returns the limiter's budget.
func (l *Limiter) Rule() Rule {
	return l.rule
}

// Allow counts one request from client.
func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	count, resetAt, err := l.store.Hit(ctx, l.rule.Name+":"+client, l.rule.Window, l.now())
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", l.rule.Name, err)
	}
	remaining := l.rule.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.rule.Max,
		Limit:     l.rule.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
