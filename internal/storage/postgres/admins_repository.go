package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
)

var _ admins.Repository = (*AdminRepository)(nil)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

const adminColumns = `id, firebase_uid, email, name, is_verified, created_at`

func scanAdmin(row pgx.Row) (*admins.Admin, error) {
	var a admins.Admin
	if err := row.Scan(&a.ID, &a.FirebaseUID, &a.Email, &a.Name, &a.IsVerified, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) get(ctx context.Context, where string, arg any) (*admins.Admin, error) {
	a, err := scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, admins.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

func (r *AdminRepository) GetByUID(ctx context.Context, uid string) (*admins.Admin, error) {
	return r.get(ctx, `firebase_uid = $1`, uid)
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*admins.Admin, error) {
	return r.get(ctx, `email = lower($1)`, email)
}

func (r *AdminRepository) Create(ctx context.Context, a admins.Admin) (*admins.Admin, bool, error) {
	created, err := scanAdmin(r.pool.QueryRow(ctx, `
INSERT INTO admins (firebase_uid, email, name)
VALUES ($1, lower($2), $3)
ON CONFLICT DO NOTHING
RETURNING `+adminColumns, a.FirebaseUID, a.Email, a.Name))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert admin: %w", err)
	}

	existing, err := scanAdmin(r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE firebase_uid = $1 OR email = lower($2) ORDER BY id LIMIT 1`,
		a.FirebaseUID, a.Email))
	if err != nil {
		return nil, false, fmt.Errorf("get existing admin: %w", err)
	}
	return existing, false, nil
}

func (r *AdminRepository) Approve(ctx context.Context, email string) (*admins.Admin, bool, error) {
	var (
		admin   *admins.Admin
		changed bool
	)
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanAdmin(tx.QueryRow(ctx,
			`SELECT `+adminColumns+` FROM admins WHERE email = lower($1) FOR UPDATE`, email))
		if errors.Is(err, pgx.ErrNoRows) {
			return admins.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get admin: %w", err)
		}
		if a.IsVerified {
			admin = a
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE admins SET is_verified = true WHERE id = $1`, a.ID); err != nil {
			return fmt.Errorf("verify admin: %w", err)
		}
		a.IsVerified = true
		admin, changed = a, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return admin, changed, nil
}

func (r *AdminRepository) List(ctx context.Context) ([]admins.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	out := []admins.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
