package storage

import (
	"context"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

// Repository groups data access by domain.
type Repository interface {
	Registrations() registrations.Repository
	Payments() payments.Repository
	Admins() admins.Repository
	Reports() admins.ReportRepository

	Ping(ctx context.Context) error
}
