package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker reports on the database, the migration state and the job
// queue. jobsEnabled=false turns the queue check into a warning.
type HealthChecker struct {
	pool        *pgxpool.Pool
	jobsEnabled bool
	version     string
	gitCommit   string
}

func NewHealthChecker(pool *pgxpool.Pool, jobsEnabled bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		pool:        pool,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
	}
}

const checkTimeout = 2 * time.Second

var checkScore = map[string]float64{"fail": 0, "warn": 1, "pass": 2}

// Health runs every check and answers 503 when any of them fails.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeHealth(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}

		overall, status := "healthy", http.StatusOK
		for name, check := range checks {
			metrics.HealthCheckStatus.WithLabelValues(name).Set(checkScore[check.Status])
			metrics.HealthCheckLatency.WithLabelValues(name).Set(float64(check.LatencyMs))
			switch {
			case check.Status == "fail":
				overall, status = "unhealthy", http.StatusServiceUnavailable
			case check.Status == "warn" && overall == "healthy":
				overall = "degraded"
			}
		}
		metrics.HealthStatus.Set(map[string]float64{"unhealthy": 0, "degraded": 1, "healthy": 2}[overall])

		writeHealth(w, status, HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Readyz answers 200 once the database accepts queries.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		check := h.checkDatabase(r.Context())
		if check.Status != "pass" {
			writeHealth(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "message": check.Message})
			return
		}
		writeHealth(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// Healthz is the liveness probe; it never touches dependencies.
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{
			Status:  "fail",
			Message: "Database pool not initialized",
			Details: map[string]any{"remediation": "Check DATABASE_URL and that PostgreSQL is running"},
		}
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var one int
	err := h.pool.QueryRow(dbCtx, "SELECT 1").Scan(&one)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message, remediation := describeDBError(err)
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": remediation},
		}
	}

	stats := h.pool.Stat()
	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: latency,
		Details: map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		},
	}
}

func describeDBError(err error) (message, remediation string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Database connection refused", "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "dial tcp"):
		return "Cannot reach database host", "Check DATABASE_URL hostname and network connectivity"
	case strings.Contains(msg, "authentication failed"), strings.Contains(msg, "password"):
		return "Database authentication failed", "Verify DATABASE_URL username and password"
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		return "Database does not exist", "Create the database or fix the DATABASE_URL database name"
	}
	return "Database query failed", "Check DATABASE_URL and PostgreSQL service status"
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		version int64
		dirty   bool
	)
	err := h.pool.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message, remediation := "Failed to query migration version", "Verify migrations have been applied"
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "no rows") {
			message, remediation = "Migrations not applied", "Run: server migrate up"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": remediation},
		}
	}

	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version":     version,
				"dirty":       true,
				"remediation": fmt.Sprintf("Fix the failed migration, then run: server migrate force %d", version),
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

// checkJobQueue counts pending River jobs. Confirmation emails are best
// effort, so a missing queue degrades rather than fails the server.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.jobsEnabled {
		return CheckResult{Status: "warn", Message: "Job queue disabled (JOBS_ENABLED=false)"}
	}
	if h.pool == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var exists bool
	err := h.pool.QueryRow(jobCtx, `SELECT to_regclass('public.river_job') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to check job queue table",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	if !exists {
		return CheckResult{
			Status:    "warn",
			Message:   "River job table not found",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"remediation": "Run: server migrate up (applies River migrations)"},
		}
	}

	var (
		available int64
		retryable int64
	)
	err = h.pool.QueryRow(jobCtx, `
SELECT count(*) FILTER (WHERE state IN ('available', 'running')),
       count(*) FILTER (WHERE state = 'retryable')
  FROM river_job`).Scan(&available, &retryable)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": available, "retryable_jobs": retryable},
	}
}
