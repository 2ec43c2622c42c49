package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
	"github.com/dscnitrourkela/project-zucchini/internal/audit"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/sanitize"
)

var (
	ErrNotFound        = apperr.New(apperr.KindNotFound, "Admin not found")
	ErrAlreadyVerified = apperr.New(apperr.KindConflict, "Admin is already verified")
	ErrMissingEmail    = apperr.New(apperr.KindInvalid, "Token has no verified email")
)

// AlreadyRegisteredError is returned when the caller already has an admin
// record, verified or not.
type AlreadyRegisteredError struct {
	IsVerified bool
}

func (e *AlreadyRegisteredError) Error() string {
	return "Already registered"
}

func (e *AlreadyRegisteredError) Kind() apperr.Kind     { return apperr.KindInvalid }
func (e *AlreadyRegisteredError) PublicMessage() string { return e.Error() }
func (e *AlreadyRegisteredError) AdminVerified() bool   { return e.IsVerified }

type Admin struct {
	ID          int64     `json:"id"`
	FirebaseUID string    `json:"firebaseUid"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsVerified  bool      `json:"isVerified"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository interface {
	GetByUID(ctx context.Context, uid string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	// Create inserts a pending admin. When the uid or email is already
	// present it returns the existing row and created=false.
	Create(ctx context.Context, a Admin) (*Admin, bool, error)
	// Approve verifies the admin with the given email and reports whether
	// this call made the change.
	Approve(ctx context.Context, email string) (*Admin, bool, error)
	List(ctx context.Context) ([]Admin, error)
}

// Notifier is told when an admin is approved.
type Notifier interface {
	AdminApproved(ctx context.Context, a Admin) error
}

type Service struct {
	repo     Repository
	audit    *audit.Logger
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  auditLogger,
		logger: logger.With().Str("component", "admins").Logger(),
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Register records the caller as a pending admin.
func (s *Service) Register(ctx context.Context, id auth.Identity, name string) (*Admin, error) {
	email := sanitize.Email(id.VerifiedEmail())
	if email == "" {
		return nil, ErrMissingEmail
	}
	name = sanitize.Text(name)
	if name == "" {
		name = sanitize.Text(id.Name)
	}

	admin, created, err := s.repo.Create(ctx, Admin{FirebaseUID: id.UID, Email: email, Name: name})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if !created {
		return nil, &AlreadyRegisteredError{IsVerified: admin.IsVerified}
	}

	s.logger.Info().Int64("admin_id", admin.ID).Str("email", email).Msg("admin registration pending")
	return admin, nil
}

// IsAdmin reports whether a verified admin exists for email.
func (s *Service) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = sanitize.Email(email)
	if email == "" {
		return false, nil
	}
	admin, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get admin: %w", err)
	}
	return admin.IsVerified, nil
}

// Approve verifies the pending admin with email. approver names who did it
// for the audit trail: an admin email or "cli".
func (s *Service) Approve(ctx context.Context, approver, email, ip string) (*Admin, error) {
	email = sanitize.Email(email)
	admin, changed, err := s.repo.Approve(ctx, email)
	if err != nil {
		if s.audit != nil {
			s.audit.LogFailure("admin.approve", approver, ip, map[string]string{"email": email, "error": err.Error()})
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("approve admin: %w", err)
	}
	if !changed {
		return admin, ErrAlreadyVerified
	}

	if s.audit != nil {
		s.audit.LogSuccess("admin.approve", approver, "admin", fmt.Sprint(admin.ID), ip, map[string]string{"email": email})
	}
	s.logger.Info().Str("email", email).Str("approver", approver).Msg("admin approved")

	if s.notifier != nil {
		if err := s.notifier.AdminApproved(ctx, *admin); err != nil {
			s.logger.Warn().Err(err).Str("email", email).Msg("failed to queue approval email")
		}
	}
	return admin, nil
}

func (s *Service) List(ctx context.Context) ([]Admin, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return list, nil
}
