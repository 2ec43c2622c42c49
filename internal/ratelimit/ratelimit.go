// Package ratelimit implements fixed-window request limiting keyed by
// category and client address.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dscnitrourkela/project-zucchini/internal/config"
)

type Category string

const (
	CategoryRegistration Category = "registration"
	CategoryPayment      Category = "payment"
	CategoryCheck        Category = "check"
	CategoryUpload       Category = "upload"
	CategoryAuth         Category = "auth"
)

// Rule allows at most Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single hit.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left in the current window, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return time.Duration(math.Ceil(wait.Seconds())) * time.Second
}

// Store records a hit against key and reports whether it fits in the window.
type Store interface {
	Hit(ctx context.Context, key string, rule Rule) (Decision, error)
}

// Limiter applies per-category rules to a Store.
type Limiter struct {
	store Store
	rules map[Category]Rule
}

func NewLimiter(store Store, rules map[Category]Rule) *Limiter {
	return &Limiter{store: store, rules: rules}
}

// RulesFromConfig maps the configured limits onto categories.
func RulesFromConfig(cfg config.RateLimitConfig) map[Category]Rule {
	convert := func(r config.RateLimitRule) Rule {
		return Rule{Limit: r.Limit, Window: r.Window}
	}
	return map[Category]Rule{
		CategoryRegistration: convert(cfg.Registration),
		CategoryPayment:      convert(cfg.Payment),
		CategoryCheck:        convert(cfg.Check),
		CategoryUpload:       convert(cfg.Upload),
		CategoryAuth:         convert(cfg.Auth),
	}
}

// Key builds the store key for a category and client identifier.
func Key(category Category, client string) string {
	return string(category) + ":" + client
}

// Allow records a hit for client under category. Categories without a
// positive rule are unlimited.
func (l *Limiter) Allow(ctx context.Context, category Category, client string) (Decision, error) {
	rule, ok := l.rules[category]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}, nil
	}
	decision, err := l.store.Hit(ctx, Key(category, client), rule)
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit %s: %w", category, err)
	}
	return decision, nil
}
