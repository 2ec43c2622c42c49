package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
)

// Inserter is satisfied by *river.Client.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Notifier turns domain events into email jobs. Inserts happen after the
// domain transaction commits, so a failed insert never rolls back a payment.
type Notifier struct {
	client Inserter
	policy *RetryPolicy
}

var (
	_ payments.Notifier = (*Notifier)(nil)
	_ admins.Notifier   = (*Notifier)(nil)
)

func NewNotifier(client Inserter, emailMaxAttempts int) *Notifier {
	return &Notifier{client: client, policy: NewRetryPolicy(emailMaxAttempts)}
}

func (n *Notifier) PaymentVerified(ctx context.Context, c payments.Confirmation) error {
	args := PaymentConfirmationEmailArgs{
		Email:     c.Email,
		Name:      c.Name,
		Event:     string(c.Event),
		Amount:    c.Amount,
		PaymentID: c.PaymentID,
		OrderID:   c.OrderID,
		TeamID:    c.TeamKey,
	}
	opts := n.policy.InsertOptsForKind(args.Kind())
	// one receipt per gateway payment, even if verification is retried
	opts.UniqueOpts = river.UniqueOpts{ByArgs: true}

	if _, err := n.client.Insert(ctx, args, opts); err != nil {
		return fmt.Errorf("insert payment confirmation job: %w", err)
	}
	return nil
}

func (n *Notifier) AdminApproved(ctx context.Context, a admins.Admin) error {
	args := AdminApprovedEmailArgs{Email: a.Email, Name: a.Name}
	if _, err := n.client.Insert(ctx, args, n.policy.InsertOptsForKind(args.Kind())); err != nil {
		return fmt.Errorf("insert admin approval job: %w", err)
	}
	return nil
}
