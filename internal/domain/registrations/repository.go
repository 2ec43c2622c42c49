package registrations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
)

var (
	ErrNotFound = apperr.New(apperr.KindNotFound, "Registration not found")
	// ErrCrossRegistration means the identity already holds a registration for the other event.
	ErrCrossRegistration = apperr.New(apperr.KindConflict, "Already registered for another event")
	ErrTeamNotFound      = apperr.New(apperr.KindNotFound, "Team not found")
	ErrTeammateNotFound  = apperr.New(apperr.KindNotFound, "No pending teammate registration for this email")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid registration"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() apperr.Kind     { return apperr.KindInvalid }
func (e *ValidationError) PublicMessage() string { return "Validation failed" }
func (e *ValidationError) PublicDetails() any    { return e.Fields }

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Repository persists registrations. WithTx runs fn against a repository
// bound to one database transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// LockIdentity serialises registration attempts for one auth subject
	// until the surrounding transaction ends.
	LockIdentity(ctx context.Context, uid string) error

	GetUserByUID(ctx context.Context, uid string) (*User, error)
	// CreateUser inserts u unless the subject already has a row, in which
	// case the existing row is returned with created=false.
	CreateUser(ctx context.Context, u User) (user *User, created bool, err error)

	GetMunByUID(ctx context.Context, uid string) (*MunRegistration, error)
	CreateMun(ctx context.Context, m MunRegistration) (reg *MunRegistration, created bool, err error)
	CreateMunTeam(ctx context.Context, members []MunRegistration) ([]MunRegistration, error)
	// LinkTeammate attaches uid to the unlinked teammate row with email.
	LinkTeammate(ctx context.Context, uid, email string) (*MunRegistration, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]MunRegistration, error)
	MunEmailsTaken(ctx context.Context, emails []string) ([]string, error)
}
