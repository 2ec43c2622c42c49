package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/api/handlers"
	"github.com/dscnitrourkela/project-zucchini/internal/api/middleware"
	"github.com/dscnitrourkela/project-zucchini/internal/audit"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/config"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

// Dependencies are the services the HTTP surface is built from. The server
// command constructs them; tests substitute stubs.
type Dependencies struct {
	Registrations handlers.RegistrationService
	Payments      handlers.PaymentService
	Uploads       handlers.UploadService
	Admins        handlers.AdminService
	Reports       handlers.ReportService

	Verifier    auth.Verifier
	RateLimiter *middleware.RateLimiter
	Health      *handlers.HealthChecker
	Audit       *audit.Logger

	Version   string
	GitCommit string
	BuildDate string
}

type route struct {
	pattern string
	handler http.HandlerFunc
	auth    bool
	admin   bool
	upload  bool
}

// NewRouter mounts every route. Each API route runs, outermost first:
// metrics, tracing, rate limiting, authentication, the admin check and the
// body size limit.
func NewRouter(cfg config.Config, logger zerolog.Logger, deps Dependencies) http.Handler {
	env := cfg.Environment

	registrations := handlers.NewRegistrationsHandler(deps.Registrations, env)
	payments := handlers.NewPaymentsHandler(deps.Payments, env)
	uploads := handlers.NewUploadsHandler(deps.Uploads, env)
	admin := handlers.NewAdminHandler(deps.Admins, deps.Reports, deps.Audit, env)

	routes := []route{
		{pattern: "POST /api/register", handler: registrations.Register, auth: true},
		{pattern: "GET /api/check-cross-registration", handler: registrations.CheckCrossRegistration, auth: true},

		{pattern: "POST /api/initiate-order", handler: payments.InitiateOrder, auth: true},
		{pattern: "POST /api/verify-order", handler: payments.VerifyOrder, auth: true},
		{pattern: "GET /api/payment/status", handler: payments.Status, auth: true},

		{pattern: "POST /api/mun/register", handler: registrations.RegisterMun, auth: true},
		{pattern: "POST /api/mun/register-team", handler: registrations.RegisterMunTeam, auth: true},
		{pattern: "GET /api/mun/check-registration", handler: registrations.CheckMunRegistration, auth: true},
		{pattern: "GET /api/mun/team", handler: registrations.GetTeam, auth: true},
		{pattern: "POST /api/mun/initiate-order", handler: payments.InitiateMunOrder, auth: true},
		// legacy client path, same handler
		{pattern: "POST /api/mun/intiate-order", handler: payments.InitiateMunOrder, auth: true},
		{pattern: "POST /api/mun/verify-order", handler: payments.VerifyMunOrder, auth: true},

		{pattern: "POST /api/upload", handler: uploads.Upload, auth: true, upload: true},

		{pattern: "POST /api/admin/auth/register", handler: admin.Register, auth: true},
		{pattern: "POST /api/admin/auth/login", handler: admin.Login, auth: true},
		{pattern: "GET /api/admin/registrations/nitrutsav", handler: admin.ListRegistrations, auth: true, admin: true},
		{pattern: "GET /api/admin/registrations/mun", handler: admin.ListMunRegistrations, auth: true, admin: true},
		{pattern: "GET /api/admin/registrations/mun/teams", handler: admin.ListMunTeams, auth: true, admin: true},
		{pattern: "POST /api/admin/admins/{email}/approve", handler: admin.Approve, auth: true, admin: true},
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.Handle(rt.pattern, buildRoute(rt, cfg, deps))
	}

	mux.Handle("GET /healthz", handlers.Healthz())
	if deps.Health != nil {
		mux.Handle("GET /readyz", deps.Health.Readyz())
		mux.Handle("GET /health", deps.Health.Health())
	}
	mux.Handle("GET /version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("GET /api/openapi.json", OpenAPIHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = middleware.RequestLogging(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func buildRoute(rt route, cfg config.Config, deps Dependencies) http.Handler {
	var h http.Handler = rt.handler

	if rt.upload {
		h = middleware.UploadRequestSize(cfg.Upload.MaxBytes)(h)
	} else {
		h = middleware.RequestSize(middleware.DefaultMaxBodySize)(h)
	}
	if rt.admin {
		h = middleware.RequireAdmin(deps.Admins, cfg.Environment)(h)
	}
	if rt.auth {
		h = middleware.RequireAuth(deps.Verifier, cfg.Environment)(h)
	}
	if deps.RateLimiter != nil {
		h = deps.RateLimiter.ForPath(pathOf(rt.pattern))(h)
	}
	h = middleware.Tracing(rt.pattern, h)
	return metrics.Instrument(rt.pattern, h)
}

// pathOf strips the method from a mux pattern.
func pathOf(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}
