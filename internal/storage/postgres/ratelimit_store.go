package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/ratelimit"
)

var _ ratelimit.Store = (*RateLimitStore)(nil)

// RateLimitStore keeps fixed windows in Postgres so every instance behind a
// load balancer shares one count per key.
type RateLimitStore struct {
	pool *pgxpool.Pool
}

func NewRateLimitStore(pool *pgxpool.Pool) *RateLimitStore {
	return &RateLimitStore{pool: pool}
}

// Hit increments the window for key in one statement. An expired window is
// restarted at 1. Counts past the limit are kept so the window still
// rejects until it resets.
func (s *RateLimitStore) Hit(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error) {
	var (
		count   int
		resetAt time.Time
	)
	err := s.pool.QueryRow(ctx, `
INSERT INTO rate_limit_windows AS w (key, count, reset_at)
VALUES ($1, 1, now() + $2::double precision * interval '1 second')
ON CONFLICT (key) DO UPDATE
   SET count    = CASE WHEN w.reset_at <= now() THEN 1 ELSE w.count + 1 END,
       reset_at = CASE WHEN w.reset_at <= now() THEN EXCLUDED.reset_at ELSE w.reset_at END
RETURNING count, reset_at`,
		key, rule.Window.Seconds(),
	).Scan(&count, &resetAt)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("rate limit hit: %w", err)
	}

	remaining := rule.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ratelimit.Decision{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Cleanup deletes windows that ended before cutoff.
func (s *RateLimitStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_windows WHERE reset_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limit windows: %w", err)
	}
	return tag.RowsAffected(), nil
}
