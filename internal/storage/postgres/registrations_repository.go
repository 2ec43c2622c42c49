package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

type RegistrationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

func (r *RegistrationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(context.Context, registrations.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &RegistrationRepository{pool: r.pool, tx: tx})
	})
}

// LockIdentity takes a transaction-scoped advisory lock on the subject id.
// Outside a transaction the lock would be released immediately, so it is
// a no-op there.
func (r *RegistrationRepository) LockIdentity(ctx context.Context, uid string) error {
	if r.tx == nil {
		return nil
	}
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "identity:"+uid); err != nil {
		return fmt.Errorf("lock identity: %w", err)
	}
	return nil
}

const userColumns = `id, firebase_uid, email, name, phone, gender, date_of_birth, institute, university,
       id_card_url, referral_code, permission, undertaking, is_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*registrations.User, error) {
	var u registrations.User
	err := row.Scan(
		&u.ID, &u.FirebaseUID, &u.Email, &u.Name, &u.Phone, &u.Gender, &u.DateOfBirth, &u.Institute, &u.University,
		&u.IDCardURL, &u.ReferralCode, &u.Permission, &u.Undertaking, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *RegistrationRepository) GetUserByUID(ctx context.Context, uid string) (*registrations.User, error) {
	u, err := scanUser(r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE firebase_uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *RegistrationRepository) CreateUser(ctx context.Context, u registrations.User) (*registrations.User, bool, error) {
	created, err := scanUser(r.queryer().QueryRow(ctx, `
INSERT INTO users (firebase_uid, email, name, phone, gender, date_of_birth, institute, university,
                   id_card_url, referral_code, permission, undertaking)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (firebase_uid) DO NOTHING
RETURNING `+userColumns,
		u.FirebaseUID, u.Email, u.Name, u.Phone, u.Gender, u.DateOfBirth, u.Institute, u.University,
		u.IDCardURL, u.ReferralCode, u.Permission, u.Undertaking,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}

	existing, err := r.GetUserByUID(ctx, u.FirebaseUID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

const munColumns = `id, COALESCE(firebase_uid, ''), email, name, phone, gender, date_of_birth, student_type,
       institute, university, city, state, id_card_url, committee_choice, portfolio_preferences,
       has_participated_before, previous_experience, emergency_contact_name, emergency_contact_phone,
       is_team_leader, COALESCE(team_id, ''), is_verified, created_at, updated_at`

func scanMun(row pgx.Row) (*registrations.MunRegistration, error) {
	var m registrations.MunRegistration
	err := row.Scan(
		&m.ID, &m.FirebaseUID, &m.Email, &m.Name, &m.Phone, &m.Gender, &m.DateOfBirth, &m.StudentType,
		&m.Institute, &m.University, &m.City, &m.State, &m.IDCardURL, &m.Committee, &m.PortfolioPreferences,
		&m.HasParticipatedBefore, &m.PreviousExperience, &m.EmergencyContactName, &m.EmergencyContactPhone,
		&m.IsTeamLeader, &m.TeamID, &m.IsVerified, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMun(rows pgx.Rows) ([]registrations.MunRegistration, error) {
	defer rows.Close()
	var out []registrations.MunRegistration
	for rows.Next() {
		m, err := scanMun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *RegistrationRepository) GetMunByUID(ctx context.Context, uid string) (*registrations.MunRegistration, error) {
	m, err := scanMun(r.queryer().QueryRow(ctx, `SELECT `+munColumns+` FROM mun_registrations WHERE firebase_uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mun registration: %w", err)
	}
	return m, nil
}

const insertMun = `
INSERT INTO mun_registrations (firebase_uid, email, name, phone, gender, date_of_birth, student_type,
                               institute, university, city, state, id_card_url, committee_choice,
                               portfolio_preferences, has_participated_before, previous_experience,
                               emergency_contact_name, emergency_contact_phone, is_team_leader, team_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func munArgs(m registrations.MunRegistration) []any {
	prefs := m.PortfolioPreferences
	if prefs == nil {
		prefs = []string{}
	}
	return []any{
		nullIfEmpty(m.FirebaseUID), m.Email, m.Name, m.Phone, m.Gender, m.DateOfBirth, m.StudentType,
		m.Institute, m.University, m.City, m.State, m.IDCardURL, m.Committee,
		prefs, m.HasParticipatedBefore, m.PreviousExperience,
		m.EmergencyContactName, m.EmergencyContactPhone, m.IsTeamLeader, nullIfEmpty(m.TeamID),
	}
}

func (r *RegistrationRepository) CreateMun(ctx context.Context, m registrations.MunRegistration) (*registrations.MunRegistration, bool, error) {
	created, err := scanMun(r.queryer().QueryRow(ctx,
		insertMun+` ON CONFLICT (firebase_uid) DO NOTHING RETURNING `+munColumns, munArgs(m)...))
	if err == nil {
		return created, true, nil
	}
	if isUniqueViolation(err) {
		return nil, false, &registrations.ValidationError{Fields: map[string]string{"email": "is already registered for MUN"}}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert mun registration: %w", err)
	}

	existing, err := r.GetMunByUID(ctx, m.FirebaseUID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *RegistrationRepository) CreateMunTeam(ctx context.Context, members []registrations.MunRegistration) ([]registrations.MunRegistration, error) {
	out := make([]registrations.MunRegistration, 0, len(members))
	for _, member := range members {
		created, err := scanMun(r.queryer().QueryRow(ctx, insertMun+` RETURNING `+munColumns, munArgs(member)...))
		if isUniqueViolation(err) {
			return nil, &registrations.ValidationError{Fields: map[string]string{"email": member.Email + " is already registered for MUN"}}
		}
		if err != nil {
			return nil, fmt.Errorf("insert team member: %w", err)
		}
		out = append(out, *created)
	}
	return out, nil
}

func (r *RegistrationRepository) LinkTeammate(ctx context.Context, uid, email string) (*registrations.MunRegistration, error) {
	m, err := scanMun(r.queryer().QueryRow(ctx, `
UPDATE mun_registrations
   SET firebase_uid = $1, updated_at = now()
 WHERE id = (
     SELECT id FROM mun_registrations
      WHERE lower(email) = lower($2)
        AND firebase_uid IS NULL
        AND team_id IS NOT NULL
      LIMIT 1
      FOR UPDATE)
RETURNING `+munColumns, uid, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, registrations.ErrTeammateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("link teammate: %w", err)
	}
	return m, nil
}

func (r *RegistrationRepository) ListTeamMembers(ctx context.Context, teamID string) ([]registrations.MunRegistration, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+munColumns+`
  FROM mun_registrations
 WHERE team_id = $1
 ORDER BY is_team_leader DESC, id ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	members, err := collectMun(rows)
	if err != nil {
		return nil, fmt.Errorf("scan team members: %w", err)
	}
	return members, nil
}

func (r *RegistrationRepository) MunEmailsTaken(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	rows, err := r.queryer().Query(ctx, `SELECT lower(email) FROM mun_registrations WHERE lower(email) = ANY($1)`, lowered)
	if err != nil {
		return nil, fmt.Errorf("check mun emails: %w", err)
	}
	taken, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan mun emails: %w", err)
	}
	return taken, nil
}
