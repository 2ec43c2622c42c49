package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/dscnitrourkela/project-zucchini/internal/email"
)

// Mailer is the part of the email service the workers need.
type Mailer interface {
	SendPaymentConfirmation(ctx context.Context, to string, p email.PaymentConfirmation) error
	SendAdminApproved(ctx context.Context, to, name, loginURL string) error
}

// rateLimitSnooze is how long a job waits after Resend refuses a send.
const rateLimitSnooze = time.Minute

type PaymentConfirmationEmailArgs struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Event     string `json:"event"`
	Amount    int    `json:"amount"`
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	TeamID    string `json:"team_id,omitempty"`
}

func (PaymentConfirmationEmailArgs) Kind() string { return JobKindPaymentConfirmationEmail }

type PaymentConfirmationEmailWorker struct {
	river.WorkerDefaults[PaymentConfirmationEmailArgs]
	Mailer Mailer
}

func (w PaymentConfirmationEmailWorker) Work(ctx context.Context, job *river.Job[PaymentConfirmationEmailArgs]) error {
	if w.Mailer == nil {
		return fmt.Errorf("mailer not configured")
	}
	a := job.Args
	err := w.Mailer.SendPaymentConfirmation(ctx, a.Email, email.PaymentConfirmation{
		Name:      a.Name,
		Event:     a.Event,
		Amount:    a.Amount,
		PaymentID: a.PaymentID,
		OrderID:   a.OrderID,
		TeamID:    a.TeamID,
	})
	return snoozeIfRateLimited(err)
}

func (PaymentConfirmationEmailWorker) Timeout(*river.Job[PaymentConfirmationEmailArgs]) time.Duration {
	return 30 * time.Second
}

type AdminApprovedEmailArgs struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (AdminApprovedEmailArgs) Kind() string { return JobKindAdminApprovedEmail }

type AdminApprovedEmailWorker struct {
	river.WorkerDefaults[AdminApprovedEmailArgs]
	Mailer   Mailer
	LoginURL string
}

func (w AdminApprovedEmailWorker) Work(ctx context.Context, job *river.Job[AdminApprovedEmailArgs]) error {
	if w.Mailer == nil {
		return fmt.Errorf("mailer not configured")
	}
	err := w.Mailer.SendAdminApproved(ctx, job.Args.Email, job.Args.Name, w.LoginURL)
	return snoozeIfRateLimited(err)
}

func (AdminApprovedEmailWorker) Timeout(*river.Job[AdminApprovedEmailArgs]) time.Duration {
	return 30 * time.Second
}

// snoozeIfRateLimited reschedules without spending an attempt when Resend
// throttles us.
func snoozeIfRateLimited(err error) error {
	if errors.Is(err, email.ErrRateLimited) {
		return river.JobSnooze(rateLimitSnooze)
	}
	return err
}
