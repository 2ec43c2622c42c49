package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
)

var _ payments.Repository = (*PaymentRepository)(nil)

type PaymentRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(context.Context, payments.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PaymentRepository{pool: r.pool, tx: tx})
	})
}

func (r *PaymentRepository) MarkUserVerified(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.queryer().Exec(ctx,
		`UPDATE users SET is_verified = true, updated_at = now() WHERE id = $1 AND is_verified = false`, userID)
	if err != nil {
		return false, fmt.Errorf("mark user verified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) InsertTransaction(ctx context.Context, t payments.Transaction) (int64, error) {
	var id int64
	err := r.queryer().QueryRow(ctx, `
INSERT INTO transactions (user_id, payment_id, payment_method, amount, is_verified)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		t.UserID, t.PaymentID, t.PaymentMethod, t.Amount, t.IsVerified,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (r *PaymentRepository) InsertGatewayPayment(ctx context.Context, p payments.GatewayPayment) error {
	verifiedAt := p.VerifiedAt
	if verifiedAt.IsZero() && p.IsVerified {
		verifiedAt = time.Now().UTC()
	}
	_, err := r.queryer().Exec(ctx, `
INSERT INTO razorpay_payments (transaction_id, order_id, payment_id, signature, is_verified, verified_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		p.TransactionID, p.OrderID, p.PaymentID, p.Signature, p.IsVerified, verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert razorpay payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetStatus(ctx context.Context, userID int64) (*payments.Status, error) {
	var (
		status     payments.Status
		method     *string
		orderID    *string
		paymentID  *string
		verifiedAt *time.Time
	)
	err := r.queryer().QueryRow(ctx, `
SELECT u.is_verified, t.payment_method, rp.order_id, t.payment_id, rp.verified_at
  FROM users u
  LEFT JOIN transactions t ON t.user_id = u.id
  LEFT JOIN razorpay_payments rp ON rp.transaction_id = t.id
 WHERE u.id = $1`, userID,
	).Scan(&status.IsVerified, &method, &orderID, &paymentID, &verifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payments.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("get payment status: %w", err)
	}

	status.PaymentMethod = payments.Method(derefString(method))
	status.OrderID = derefString(orderID)
	status.PaymentID = derefString(paymentID)
	status.VerifiedAt = verifiedAt
	return &status, nil
}

func (r *PaymentRepository) MarkMunVerified(ctx context.Context, teamID string, registrationID int64) (int64, error) {
	var (
		sql  string
		args []any
	)
	if teamID != "" {
		sql = `UPDATE mun_registrations SET is_verified = true, updated_at = now() WHERE team_id = $1 AND is_verified = false`
		args = []any{teamID}
	} else {
		sql = `UPDATE mun_registrations SET is_verified = true, updated_at = now() WHERE id = $1 AND is_verified = false`
		args = []any{registrationID}
	}
	tag, err := r.queryer().Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("mark mun verified: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PaymentRepository) InsertMunTransaction(ctx context.Context, t payments.MunTransaction) (bool, error) {
	tag, err := r.queryer().Exec(ctx, `
INSERT INTO mun_transactions (team_id, payment_id, order_id, signature, amount, payment_method, is_verified)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (team_id) DO NOTHING`,
		t.TeamKey, t.PaymentID, t.OrderID, t.Signature, t.Amount, t.PaymentMethod, t.IsVerified,
	)
	if err != nil {
		return false, fmt.Errorf("insert mun transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
