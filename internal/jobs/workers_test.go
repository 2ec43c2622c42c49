package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/email"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

type fakeMailer struct {
	err error

	payments []email.PaymentConfirmation
	to       []string
	loginURL string
}

func (m *fakeMailer) SendPaymentConfirmation(_ context.Context, to string, p email.PaymentConfirmation) error {
	m.to = append(m.to, to)
	m.payments = append(m.payments, p)
	return m.err
}

func (m *fakeMailer) SendAdminApproved(_ context.Context, to, _, loginURL string) error {
	m.to = append(m.to, to)
	m.loginURL = loginURL
	return m.err
}

func job[T river.JobArgs](args T) *river.Job[T] {
	return &river.Job[T]{JobRow: &rivertype.JobRow{ID: 1, Attempt: 1}, Args: args}
}

func TestPaymentConfirmationEmailWorker(t *testing.T) {
	mailer := &fakeMailer{}
	w := PaymentConfirmationEmailWorker{Mailer: mailer}

	err := w.Work(context.Background(), job(PaymentConfirmationEmailArgs{
		Email: "delegate@example.com", Name: "Meera", Event: "MUN", Amount: 3600,
		PaymentID: "pay_1", OrderID: "order_1", TeamID: "team-abc",
	}))
	require.NoError(t, err)

	require.Len(t, mailer.payments, 1)
	assert.Equal(t, []string{"delegate@example.com"}, mailer.to)
	assert.Equal(t, email.PaymentConfirmation{
		Name: "Meera", Event: "MUN", Amount: 3600, PaymentID: "pay_1", OrderID: "order_1", TeamID: "team-abc",
	}, mailer.payments[0])
}

func TestEmailWorkers_Errors(t *testing.T) {
	t.Run("rate limited snoozes", func(t *testing.T) {
		w := AdminApprovedEmailWorker{Mailer: &fakeMailer{err: fmt.Errorf("%w: slow down", email.ErrRateLimited)}}
		err := w.Work(context.Background(), job(AdminApprovedEmailArgs{Email: "a@example.com"}))

		require.Error(t, err)
		assert.NotErrorIs(t, err, email.ErrRateLimited)
		assert.Contains(t, strings.ToLower(err.Error()), "snooze")
	})

	t.Run("other errors retry", func(t *testing.T) {
		boom := errors.New("resend API error")
		w := PaymentConfirmationEmailWorker{Mailer: &fakeMailer{err: boom}}
		assert.ErrorIs(t, w.Work(context.Background(), job(PaymentConfirmationEmailArgs{Email: "a@example.com"})), boom)
	})

	t.Run("no mailer", func(t *testing.T) {
		assert.Error(t, AdminApprovedEmailWorker{}.Work(context.Background(), job(AdminApprovedEmailArgs{})))
	})
}

func TestAdminApprovedEmailWorker_PassesLoginURL(t *testing.T) {
	mailer := &fakeMailer{}
	w := AdminApprovedEmailWorker{Mailer: mailer, LoginURL: "https://nitrutsav.in/admin"}

	require.NoError(t, w.Work(context.Background(), job(AdminApprovedEmailArgs{Email: "a@example.com", Name: "A"})))
	assert.Equal(t, "https://nitrutsav.in/admin", mailer.loginURL)
}

type fakeCleaner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (c *fakeCleaner) Cleanup(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return c.deleted, c.err
}

func TestRateLimitCleanupWorker(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	cleaner := &fakeCleaner{deleted: 7}
	w := RateLimitCleanupWorker{
		Store:     cleaner,
		MaxWindow: 15 * time.Minute,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Now:       func() time.Time { return now },
	}

	before := testutil.ToFloat64(metrics.RateLimitWindowsDeleted)
	require.NoError(t, w.Work(context.Background(), job(RateLimitCleanupArgs{})))

	assert.Equal(t, now.Add(-15*time.Minute), cleaner.cutoff)
	assert.Equal(t, before+7, testutil.ToFloat64(metrics.RateLimitWindowsDeleted))
}

func TestRateLimitCleanupWorker_Errors(t *testing.T) {
	assert.Error(t, RateLimitCleanupWorker{}.Work(context.Background(), job(RateLimitCleanupArgs{})))

	w := RateLimitCleanupWorker{Store: &fakeCleaner{err: errors.New("connection reset")}}
	assert.ErrorContains(t, w.Work(context.Background(), job(RateLimitCleanupArgs{})), "connection reset")
}

type fakeInserter struct {
	args []river.JobArgs
	opts []*river.InsertOpts
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.args = append(f.args, args)
	f.opts = append(f.opts, opts)
	return &rivertype.JobInsertResult{}, f.err
}

func TestNotifier_PaymentVerified(t *testing.T) {
	inserter := &fakeInserter{}
	n := NewNotifier(inserter, 5)

	err := n.PaymentVerified(context.Background(), payments.Confirmation{
		Event: registrations.EventNitrutsav, Email: "asha@example.com", Name: "Asha",
		Amount: 1299, PaymentID: "pay_1", OrderID: "order_1",
	})
	require.NoError(t, err)

	require.Len(t, inserter.args, 1)
	args, ok := inserter.args[0].(PaymentConfirmationEmailArgs)
	require.True(t, ok)
	assert.Equal(t, "NITRUTSAV", args.Event)
	assert.Equal(t, 1299, args.Amount)
	assert.Equal(t, QueueEmail, inserter.opts[0].Queue)
	assert.Equal(t, 5, inserter.opts[0].MaxAttempts)
	assert.True(t, inserter.opts[0].UniqueOpts.ByArgs)
}

func TestNotifier_AdminApproved(t *testing.T) {
	inserter := &fakeInserter{}
	n := NewNotifier(inserter, 0)

	require.NoError(t, n.AdminApproved(context.Background(), admins.Admin{Email: "a@example.com", Name: "A"}))
	assert.Equal(t, AdminApprovedEmailArgs{Email: "a@example.com", Name: "A"}, inserter.args[0])

	inserter.err = errors.New("queue down")
	assert.ErrorContains(t, n.AdminApproved(context.Background(), admins.Admin{Email: "a@example.com"}), "queue down")
}

func TestNewWorkers(t *testing.T) {
	assert.NotNil(t, NewWorkers(WorkerDeps{}))
	assert.NotNil(t, NewWorkers(WorkerDeps{Mailer: &fakeMailer{}, Cleaner: &fakeCleaner{}, MaxRateWindow: time.Minute}))
}

func TestAlertingErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	var notified []string
	h := NewAlertingErrorHandler(slog.New(slog.NewJSONHandler(&buf, nil)), func(_ context.Context, job *rivertype.JobRow, err error) {
		notified = append(notified, job.Kind+": "+err.Error())
	})

	h.HandleError(context.Background(), &rivertype.JobRow{ID: 1, Kind: JobKindAdminApprovedEmail, Attempt: 1, MaxAttempts: 3}, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	h.HandleError(context.Background(), &rivertype.JobRow{ID: 1, Kind: JobKindAdminApprovedEmail, Attempt: 3, MaxAttempts: 3}, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)

	h.HandlePanic(context.Background(), &rivertype.JobRow{ID: 2, Kind: JobKindRateLimitCleanup}, "nil map", "trace")
	assert.Equal(t, []string{
		"admin_approved_email: boom",
		"admin_approved_email: boom",
		"rate_limit_cleanup: panic: nil map",
	}, notified)
}
