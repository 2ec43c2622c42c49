package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscnitrourkela/project-zucchini/internal/config"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy(5)

	tests := []struct {
		kind        string
		maxAttempts int
		baseDelay   time.Duration
		maxDelay    time.Duration
	}{
		{JobKindPaymentConfirmationEmail, 5, 30 * time.Second, time.Hour},
		{JobKindAdminApprovedEmail, 5, 30 * time.Second, time.Hour},
		{JobKindRateLimitCleanup, CleanupMaxAttempts, time.Minute, 10 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg, ok := policy.ByKind[tt.kind]
			require.True(t, ok)
			assert.Equal(t, tt.maxAttempts, cfg.MaxAttempts)
			assert.Equal(t, tt.baseDelay, cfg.BaseDelay)
			assert.Equal(t, tt.maxDelay, cfg.MaxDelay)
		})
	}

	assert.Equal(t, DefaultEmailMaxAttempts, NewRetryPolicy(0).ByKind[JobKindPaymentConfirmationEmail].MaxAttempts)
}

func TestRetryPolicy_NextRetry(t *testing.T) {
	policy := NewRetryPolicy(8)
	attempted := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first", 1, 30 * time.Second},
		{"second", 2, time.Minute},
		{"fourth", 4, 4 * time.Minute},
		{"capped", 20, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: JobKindPaymentConfirmationEmail, Attempt: tt.attempt, AttemptedAt: &attempted}
			assert.Equal(t, attempted.Add(tt.want), policy.NextRetry(job))
		})
	}
}

func TestRetryPolicy_UnknownKindUsesDefault(t *testing.T) {
	policy := NewRetryPolicy(8)
	assert.Equal(t, policy.Default, policy.configFor("something_else"))

	var nilPolicy *RetryPolicy
	assert.Equal(t, CleanupMaxAttempts, nilPolicy.configFor("x").MaxAttempts)
}

func TestInsertOptsForKind(t *testing.T) {
	policy := NewRetryPolicy(4)

	opts := policy.InsertOptsForKind(JobKindAdminApprovedEmail)
	assert.Equal(t, 4, opts.MaxAttempts)
	assert.Equal(t, QueueEmail, opts.Queue)

	opts = policy.InsertOptsForKind(JobKindRateLimitCleanup)
	assert.Empty(t, opts.Queue)
}

func TestNewClientConfig(t *testing.T) {
	workers := river.NewWorkers()
	rc := NewClientConfig(config.JobsConfig{EmailMaxAttempts: 6, MaxWorkersDefault: 4}, workers, nil, nil, NewPeriodicJobs(time.Hour))

	assert.Equal(t, 4, rc.Queues[river.QueueDefault].MaxWorkers)
	assert.Contains(t, rc.Queues, QueueEmail)
	assert.Len(t, rc.PeriodicJobs, 1)
	assert.Nil(t, rc.ErrorHandler)

	rc = NewClientConfig(config.JobsConfig{}, workers, nil, nil, nil)
	assert.Equal(t, 10, rc.Queues[river.QueueDefault].MaxWorkers)
}

func TestNewPeriodicJobs_Disabled(t *testing.T) {
	assert.Nil(t, NewPeriodicJobs(0))
}
