package jobs

import (
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// WorkerDeps carries what the workers need. A nil Mailer leaves the email
// kinds unregistered; a nil Cleaner does the same for cleanup.
type WorkerDeps struct {
	Mailer        Mailer
	AdminLoginURL string
	Cleaner       WindowCleaner
	MaxRateWindow time.Duration
	Logger        *slog.Logger
}

func NewWorkers(deps WorkerDeps) *river.Workers {
	workers := river.NewWorkers()
	if deps.Mailer != nil {
		river.AddWorker(workers, PaymentConfirmationEmailWorker{Mailer: deps.Mailer})
		river.AddWorker(workers, AdminApprovedEmailWorker{Mailer: deps.Mailer, LoginURL: deps.AdminLoginURL})
	}
	if deps.Cleaner != nil {
		river.AddWorker(workers, RateLimitCleanupWorker{
			Store:     deps.Cleaner,
			MaxWindow: deps.MaxRateWindow,
			Logger:    deps.Logger,
		})
	}
	return workers
}
