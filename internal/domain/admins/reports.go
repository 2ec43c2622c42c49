package admins

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
)

// NitrutsavStats summarises festival registrations.
type NitrutsavStats struct {
	Total        int64 `json:"total"`
	Male         int64 `json:"male"`
	Female       int64 `json:"female"`
	Verified     int64 `json:"verified"`
	Pending      int64 `json:"pending"`
	NITRStudents int64 `json:"nitrStudents"`
}

// MunStats summarises MUN registrations.
type MunStats struct {
	Total       int64            `json:"total"`
	Male        int64            `json:"male"`
	Female      int64            `json:"female"`
	Verified    int64            `json:"verified"`
	Pending     int64            `json:"pending"`
	School      int64            `json:"school"`
	College     int64            `json:"college"`
	ByCommittee map[string]int64 `json:"byCommittee"`
}

// ReportRepository serves the read-only admin views.
type ReportRepository interface {
	ListUsers(ctx context.Context, limit, offset int) ([]registrations.User, error)
	CountUsers(ctx context.Context) (int64, error)
	NitrutsavStats(ctx context.Context) (NitrutsavStats, error)

	ListMun(ctx context.Context, limit, offset int) ([]registrations.MunRegistration, error)
	CountMun(ctx context.Context) (int64, error)
	MunStats(ctx context.Context) (MunStats, error)
	ListAllMun(ctx context.Context) ([]registrations.MunRegistration, error)
}

// PageRequest selects one page of a listing. Page is 1-based.
type PageRequest struct {
	Page      int
	PageSize  int
	WithStats bool
}

type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type NitrutsavPage struct {
	Items []registrations.User
	PageInfo
	Stats *NitrutsavStats
}

type MunPage struct {
	Items []registrations.MunRegistration
	PageInfo
	Stats *MunStats
}

type Reports struct {
	repo ReportRepository
}

func NewReports(repo ReportRepository) *Reports {
	return &Reports{repo: repo}
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// normalize clamps the request to a valid page.
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

func pageInfo(p PageRequest, total int64) PageInfo {
	pages := total / int64(p.PageSize)
	if total%int64(p.PageSize) != 0 {
		pages++
	}
	return PageInfo{Page: p.Page, PageSize: p.PageSize, Total: total, TotalPages: pages}
}

// ListRegistrations returns one page of festival registrations. The page,
// the count and the optional stats are queried concurrently.
func (r *Reports) ListRegistrations(ctx context.Context, p PageRequest) (*NitrutsavPage, error) {
	p = p.normalize()
	var (
		out   NitrutsavPage
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := r.repo.ListUsers(gctx, p.PageSize, p.offset())
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		out.Items = items
		return nil
	})
	g.Go(func() error {
		n, err := r.repo.CountUsers(gctx)
		if err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		total = n
		return nil
	})
	if p.WithStats {
		g.Go(func() error {
			stats, err := r.repo.NitrutsavStats(gctx)
			if err != nil {
				return fmt.Errorf("registration stats: %w", err)
			}
			out.Stats = &stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Items == nil {
		out.Items = []registrations.User{}
	}
	out.PageInfo = pageInfo(p, total)
	return &out, nil
}

// ListMunRegistrations returns one page of MUN registrations.
func (r *Reports) ListMunRegistrations(ctx context.Context, p PageRequest) (*MunPage, error) {
	p = p.normalize()
	var (
		out   MunPage
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := r.repo.ListMun(gctx, p.PageSize, p.offset())
		if err != nil {
			return fmt.Errorf("list mun registrations: %w", err)
		}
		out.Items = items
		return nil
	})
	g.Go(func() error {
		n, err := r.repo.CountMun(gctx)
		if err != nil {
			return fmt.Errorf("count mun registrations: %w", err)
		}
		total = n
		return nil
	})
	if p.WithStats {
		g.Go(func() error {
			stats, err := r.repo.MunStats(gctx)
			if err != nil {
				return fmt.Errorf("mun stats: %w", err)
			}
			if stats.ByCommittee == nil {
				stats.ByCommittee = map[string]int64{}
			}
			out.Stats = &stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Items == nil {
		out.Items = []registrations.MunRegistration{}
	}
	out.PageInfo = pageInfo(p, total)
	return &out, nil
}

// ListMunTeams groups every MUN registration by team key.
func (r *Reports) ListMunTeams(ctx context.Context) ([]registrations.Team, error) {
	rows, err := r.repo.ListAllMun(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mun registrations: %w", err)
	}
	return registrations.GroupTeams(rows), nil
}
