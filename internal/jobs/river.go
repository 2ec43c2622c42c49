package jobs

import (
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/dscnitrourkela/project-zucchini/internal/config"
)

const (
	JobKindPaymentConfirmationEmail = "payment_confirmation_email"
	JobKindAdminApprovedEmail       = "admin_approved_email"
	JobKindRateLimitCleanup         = "rate_limit_cleanup"
)

// QueueEmail keeps outbound mail off the default queue so a Resend outage
// cannot starve cleanup.
const QueueEmail = "email"

const (
	DefaultEmailMaxAttempts = 8
	CleanupMaxAttempts      = 3
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

func NewRetryPolicy(emailMaxAttempts int) *RetryPolicy {
	if emailMaxAttempts < 1 {
		emailMaxAttempts = DefaultEmailMaxAttempts
	}
	email := RetryConfig{
		MaxAttempts: emailMaxAttempts,
		BaseDelay:   30 * time.Second,
		MaxDelay:    1 * time.Hour,
	}
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: CleanupMaxAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindPaymentConfirmationEmail: email,
			JobKindAdminApprovedEmail:       email,
			JobKindRateLimitCleanup: {
				MaxAttempts: CleanupMaxAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    10 * time.Minute,
			},
		},
	}
}

// NextRetry doubles the kind's base delay per attempt, capped at MaxDelay.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	cfg := p.configFor(job.Kind)
	if cfg.BaseDelay == 0 {
		return time.Now()
	}

	attempt := max(job.Attempt, 1)
	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: CleanupMaxAttempts, BaseDelay: time.Minute, MaxDelay: time.Hour}
	}
	if cfg, ok := p.ByKind[kind]; ok {
		return cfg
	}
	return p.Default
}

// InsertOptsForKind returns insert options carrying the kind's attempt limit
// and queue.
func (p *RetryPolicy) InsertOptsForKind(kind string) *river.InsertOpts {
	opts := &river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts}
	switch kind {
	case JobKindPaymentConfirmationEmail, JobKindAdminApprovedEmail:
		opts.Queue = QueueEmail
	}
	return opts
}

// NewClientConfig builds the River configuration: retry policy, queues,
// metrics hooks and the periodic rate-limit cleanup.
func NewClientConfig(cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) *river.Config {
	policy := NewRetryPolicy(cfg.EmailMaxAttempts)
	maxWorkers := cfg.MaxWorkersDefault
	if maxWorkers < 1 {
		maxWorkers = 10
	}

	rc := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
			// Resend's free tier allows two requests per second
			QueueEmail: {MaxWorkers: 2},
		},
		Hooks: hooks,
	}
	if logger != nil {
		rc.Logger = logger
		rc.ErrorHandler = NewAlertingErrorHandler(logger, nil)
	}
	return rc
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, rc *river.Config) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), rc)
}

// NewPeriodicJobs schedules the rate-limit window cleanup. A zero interval
// disables it.
func NewPeriodicJobs(cleanupInterval time.Duration) []*river.PeriodicJob {
	if cleanupInterval <= 0 {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(cleanupInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RateLimitCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
