package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

var _ admins.ReportRepository = (*ReportRepository)(nil)

// ReportRepository runs the read-only admin listings.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// nitrStudentPredicate mirrors registrations.IsNITRStudent.
const nitrStudentPredicate = `(lower(email) LIKE '%@nitrkl.ac.in'
    OR lower(institute) LIKE '%nit rourkela%'
    OR lower(institute) LIKE '%national institute of technology rourkela%'
    OR lower(institute) LIKE '%national institute of technology, rourkela%')`

func (r *ReportRepository) ListUsers(ctx context.Context, limit, offset int) ([]registrations.User, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
  FROM users
 ORDER BY created_at DESC, id DESC
 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []registrations.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *ReportRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *ReportRepository) NitrutsavStats(ctx context.Context) (admins.NitrutsavStats, error) {
	var s admins.NitrutsavStats
	err := r.pool.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE gender = 'MALE'),
       count(*) FILTER (WHERE gender = 'FEMALE'),
       count(*) FILTER (WHERE is_verified),
       count(*) FILTER (WHERE NOT is_verified),
       count(*) FILTER (WHERE `+nitrStudentPredicate+`)
  FROM users`).Scan(&s.Total, &s.Male, &s.Female, &s.Verified, &s.Pending, &s.NITRStudents)
	if err != nil {
		return admins.NitrutsavStats{}, fmt.Errorf("nitrutsav stats: %w", err)
	}
	return s, nil
}

func (r *ReportRepository) ListMun(ctx context.Context, limit, offset int) ([]registrations.MunRegistration, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+munColumns+`
  FROM mun_registrations
 ORDER BY created_at DESC, id DESC
 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list mun registrations: %w", err)
	}
	out, err := collectMun(rows)
	if err != nil {
		return nil, fmt.Errorf("scan mun registration: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) CountMun(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM mun_registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mun registrations: %w", err)
	}
	return n, nil
}

func (r *ReportRepository) MunStats(ctx context.Context) (admins.MunStats, error) {
	var s admins.MunStats
	err := r.pool.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE gender = 'MALE'),
       count(*) FILTER (WHERE gender = 'FEMALE'),
       count(*) FILTER (WHERE is_verified),
       count(*) FILTER (WHERE NOT is_verified),
       count(*) FILTER (WHERE student_type = 'SCHOOL'),
       count(*) FILTER (WHERE student_type = 'COLLEGE')
  FROM mun_registrations`).Scan(&s.Total, &s.Male, &s.Female, &s.Verified, &s.Pending, &s.School, &s.College)
	if err != nil {
		return admins.MunStats{}, fmt.Errorf("mun stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT committee_choice, count(*) FROM mun_registrations GROUP BY committee_choice`)
	if err != nil {
		return admins.MunStats{}, fmt.Errorf("mun committee stats: %w", err)
	}
	defer rows.Close()

	s.ByCommittee = make(map[string]int64)
	for rows.Next() {
		var (
			committee string
			n         int64
		)
		if err := rows.Scan(&committee, &n); err != nil {
			return admins.MunStats{}, fmt.Errorf("scan committee stats: %w", err)
		}
		s.ByCommittee[committee] = n
	}
	return s, rows.Err()
}

func (r *ReportRepository) ListAllMun(ctx context.Context) ([]registrations.MunRegistration, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+munColumns+`
  FROM mun_registrations
 ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mun registrations: %w", err)
	}
	out, err := collectMun(rows)
	if err != nil {
		return nil, fmt.Errorf("scan mun registration: %w", err)
	}
	return out, nil
}
