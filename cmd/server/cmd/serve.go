package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dscnitrourkela/project-zucchini/internal/api"
	"github.com/dscnitrourkela/project-zucchini/internal/api/handlers"
	"github.com/dscnitrourkela/project-zucchini/internal/api/middleware"
	"github.com/dscnitrourkela/project-zucchini/internal/audit"
	"github.com/dscnitrourkela/project-zucchini/internal/auth"
	"github.com/dscnitrourkela/project-zucchini/internal/config"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/admins"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/uploads"
	"github.com/dscnitrourkela/project-zucchini/internal/email"
	"github.com/dscnitrourkela/project-zucchini/internal/jobs"
	"github.com/dscnitrourkela/project-zucchini/internal/media/cloudinary"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
	"github.com/dscnitrourkela/project-zucchini/internal/payment/razorpay"
	"github.com/dscnitrourkela/project-zucchini/internal/ratelimit"
	"github.com/dscnitrourkela/project-zucchini/internal/storage/postgres"
	"github.com/dscnitrourkela/project-zucchini/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*globalOptions
	host string
	port int
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and the background job workers.

The server will:
- Load configuration from environment variables (and --config if given)
- Apply migrations first when DATABASE_MIGRATE_ON_START is set
- Start River workers for confirmation emails and rate limit cleanup
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with configuration from the environment
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Override fees and rate limits from a file
  server serve --config /etc/zucchini/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func (o *serveOptions) config() (config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if o.host != "" {
		cfg.Server.Host = o.host
	}
	if o.port != 0 {
		cfg.Server.Port = o.port
	}
	return cfg, nil
}

func runServer(ctx context.Context, opts *serveOptions) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting server")
	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if cfg.Database.MigrateOnStart {
		if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.Open(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := metrics.RegisterPool(pool); err != nil {
		logger.Warn().Err(err).Msg("database metrics not registered")
	}

	app, err := newApplication(ctx, cfg, logger, pool)
	if err != nil {
		return err
	}
	defer app.close()

	if app.river != nil {
		if err := app.river.Start(ctx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Msg("river workers started")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := app.river.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
				return
			}
			logger.Info().Msg("river workers stopped")
		}()
	} else {
		logger.Warn().Msg("background jobs disabled; confirmation emails will not be sent")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.handler,
		ReadTimeout:       30 * time.Second, // uploads up to the size limit
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return gracefulShutdown(server, logger)
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// application is the assembled server: HTTP handler, optional job client
// and whatever needs stopping afterwards.
type application struct {
	handler http.Handler
	river   *river.Client[pgx.Tx]
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApplication(ctx context.Context, cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (*application, error) {
	app := &application{}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, err
	}
	auditLogger := audit.NewLogger(logger)

	registrationService := registrations.NewService(repo.Registrations(), registrations.FeesFromConfig(cfg.Fees), logger)
	gateway := razorpay.NewClient(cfg.Payment.KeyID, cfg.Payment.KeySecret)
	paymentService := payments.NewService(repo.Payments(), registrationService, gateway,
		registrations.FeesFromConfig(cfg.Fees), cfg.Payment.Currency, logger)
	mediaHost, err := cloudinary.NewClient(cfg.Upload.CloudName, cfg.Upload.APIKey, cfg.Upload.APISecret)
	if err != nil {
		return nil, err
	}
	uploadService := uploads.NewService(mediaHost, cfg.Upload.Folder, cfg.Upload.MaxBytes, logger)
	adminService := admins.NewService(repo.Admins(), auditLogger, logger)
	reports := admins.NewReports(repo.Reports())

	if !mediaHost.Configured() {
		logger.Warn().Msg("cloudinary credentials not set; uploads will answer 503")
	}

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	store, cleaner := rateLimitStore(cfg, repo)
	if memory, ok := store.(*ratelimit.MemoryStore); ok {
		app.closers = append(app.closers, memory.Stop)
	}
	limiter := middleware.NewRateLimiter(
		ratelimit.NewLimiter(store, ratelimit.RulesFromConfig(cfg.RateLimit)),
		cfg.RateLimit.TrustedProxyCIDRs, cfg.Environment, logger,
	)

	if cfg.Jobs.Enabled {
		client, err := newJobClient(cfg, logger, pool, cleaner)
		if err != nil {
			return nil, err
		}
		notifier := jobs.NewNotifier(client, cfg.Jobs.EmailMaxAttempts)
		paymentService.SetNotifier(notifier)
		adminService.SetNotifier(notifier)
		app.river = client
	}

	app.handler = api.NewRouter(cfg, logger, api.Dependencies{
		Registrations: registrationService,
		Payments:      paymentService,
		Uploads:       uploadService,
		Admins:        adminService,
		Reports:       reports,
		Verifier:      verifier,
		RateLimiter:   limiter,
		Health:        handlers.NewHealthChecker(pool, cfg.Jobs.Enabled, Version, GitCommit),
		Audit:         auditLogger,
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
	})
	return app, nil
}

// rateLimitStore picks the window store. Only the Postgres store needs the
// periodic cleanup job; the memory store sweeps itself.
func rateLimitStore(cfg config.Config, repo *postgres.Repository) (ratelimit.Store, jobs.WindowCleaner) {
	if cfg.RateLimit.Store == "postgres" {
		return repo.RateLimits(), repo.RateLimits()
	}
	return ratelimit.NewMemoryStore(time.Minute), nil
}

func newJobClient(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, cleaner jobs.WindowCleaner) (*river.Client[pgx.Tx], error) {
	slogger := config.NewSlogLogger(logger)

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	var periodic []*river.PeriodicJob
	if cleaner != nil {
		periodic = jobs.NewPeriodicJobs(cfg.Jobs.RateLimitCleanup)
	}

	workers := jobs.NewWorkers(jobs.WorkerDeps{
		Mailer:        mailer,
		AdminLoginURL: cfg.Email.AdminLoginURL,
		Cleaner:       cleaner,
		MaxRateWindow: maxRateWindow(cfg.RateLimit),
		Logger:        slogger,
	})
	hooks := []rivertype.Hook{metrics.NewRiverMetricsHook()}

	client, err := jobs.NewClient(pool, jobs.NewClientConfig(cfg.Jobs, workers, slogger, hooks, periodic))
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	return client, nil
}

// maxRateWindow is the longest configured window; rows older than that can
// no longer affect a decision.
func maxRateWindow(cfg config.RateLimitConfig) time.Duration {
	longest := time.Duration(0)
	for _, rule := range []config.RateLimitRule{cfg.Registration, cfg.Payment, cfg.Check, cfg.Upload, cfg.Auth} {
		if rule.Window > longest {
			longest = rule.Window
		}
	}
	return longest
}
