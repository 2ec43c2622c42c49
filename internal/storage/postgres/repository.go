package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/storage"
)

var _ storage.Repository = (*Repository)(nil)

// Repository implements storage.Repository interface with PostgreSQL backend
type Repository struct {
	pool *pgxpool.Pool

	registrations *RegistrationRepository
	payments      *PaymentRepository
	admins        *AdminRepository
	reports       *ReportRepository
	rateLimits    *RateLimitStore
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	return &Repository{
		pool:          pool,
		registrations: NewRegistrationRepository(pool),
		payments:      NewPaymentRepository(pool),
		admins:        NewAdminRepository(pool),
		reports:       NewReportRepository(pool),
		rateLimits:    NewRateLimitStore(pool),
	}, nil
}

func (r *Repository) Registrations() registrations.Repository {
	return r.registrations
}

func (r *Repository) Payments() payments.Repository {
	return r.payments
}

func (r *Repository) Admins() admins.Repository {
	return r.admins
}

func (r *Repository) Reports() admins.ReportRepository {
	return r.reports
}

// RateLimits returns the shared fixed-window store.
func (r *Repository) RateLimits() *RateLimitStore {
	return r.rateLimits
}

func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
