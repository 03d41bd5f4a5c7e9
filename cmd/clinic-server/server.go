package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/siratop/sistema-clinica/internal/config"
	"github.com/siratop/sistema-clinica/internal/domain/allowlist"
	"github.com/siratop/sistema-clinica/internal/domain/cms"
	"github.com/siratop/sistema-clinica/internal/domain/dashboard"
	"github.com/siratop/sistema-clinica/internal/domain/documents"
	"github.com/siratop/sistema-clinica/internal/domain/identity"
	"github.com/siratop/sistema-clinica/internal/domain/ledger"
	"github.com/siratop/sistema-clinica/internal/domain/nursing"
	"github.com/siratop/sistema-clinica/internal/domain/patient"
	"github.com/siratop/sistema-clinica/internal/domain/scheduling"
	"github.com/siratop/sistema-clinica/internal/platform/auth"
	"github.com/siratop/sistema-clinica/internal/platform/blobstore"
	"github.com/siratop/sistema-clinica/internal/platform/cache"
	"github.com/siratop/sistema-clinica/internal/platform/db"
	"github.com/siratop/sistema-clinica/internal/platform/logging"
	"github.com/siratop/sistema-clinica/internal/platform/mail"
	"github.com/siratop/sistema-clinica/internal/platform/middleware"
	"github.com/siratop/sistema-clinica/internal/platform/pdf"
	"github.com/siratop/sistema-clinica/internal/platform/telemetry"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

func runServer(cfg *config.Config) error {
	logger := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
		Service:     serviceName,
	})

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
	}, logger)

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		ApplicationName: serviceName,
		SlowQuery:       cfg.DBSlowQuery,
		Logger:          &logger,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")
	tx := db.NewTxRunner(pool)

	// Supporting infrastructure
	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info().Str("backend", cfg.StorageBackend).Msg("file storage ready")

	homeCache, closeCache := newCache(ctx, cfg, logger)
	defer closeCache()

	renderer, err := web.NewRenderer(cfg.ClinicName, cfg.PhoneRegion)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	sessions := auth.NewSessionManager(auth.SessionConfig{
		SigningKey: []byte(cfg.SessionSecret),
		TTL:        cfg.SessionTTL,
		Secure:     cfg.CookieSecure,
		Issuer:     serviceName,
	})

	// Domain services
	identitySvc := identity.NewService(
		identity.NewAccountRepoPG(pool),
		identity.NewStaffRepoPG(pool),
		identity.NewSpecialtyRepoPG(pool),
		logger,
	)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), identitySvc, tx, cfg.PhoneRegion, logger)
	allowlistSvc := allowlist.NewService(allowlist.NewRepoPG(pool), identitySvc, tx, cfg.PhoneRegion, logger)
	schedulingSvc := scheduling.NewService(
		scheduling.NewRepoPG(pool),
		patientSvc,
		identitySvc,
		tx,
		pdf.NewRenderer(),
		newMailer(cfg, logger),
		cfg.ClinicName,
		logger,
	)
	documentSvc := documents.NewService(documents.NewRepoPG(pool), store, patientSvc, cfg.MaxUploadBytes(), logger)
	nursingSvc := nursing.NewService(nursing.NewRepoPG(pool), logger)
	ledgerSvc := ledger.NewService(ledger.NewRepoPG(pool), logger)
	cmsSvc := cms.NewService(
		cms.NewSlideRepoPG(pool),
		cms.NewFAQRepoPG(pool),
		cms.NewAnnouncementRepoPG(pool),
		store,
		homeCache,
		cfg.MaxUploadBytes(),
		logger,
	)
	cmsSvc.SetCacheTTL(cfg.HomeCacheTTL)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	metrics := middleware.NewMetrics("clinic")

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID, echo.HeaderXCSRFToken},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB+1)))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper:        csrfSkipper,
		TokenLookup:    "form:_csrf,header:" + echo.HeaderXCSRFToken,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	e.Use(auth.SessionMiddleware(sessions, identitySvc, logger))

	mountOperational(e, pool, metrics)

	limit := formRateLimiter(cfg.FormRateLimitRPS)
	root := e.Group("")

	identity.NewHandler(identitySvc, sessions).RegisterRoutes(root, limit)
	allowlist.NewHandler(allowlistSvc, identitySvc).RegisterRoutes(root, limit)

	patientHandler := patient.NewHandler(patientSvc, sessions)
	patientHandler.AddSection("appointments", func(ctx context.Context, id uuid.UUID) (any, error) {
		return schedulingSvc.ListByPatient(ctx, id)
	})
	patientHandler.AddSection("documents", func(ctx context.Context, id uuid.UUID) (any, error) {
		return documentSvc.ListByPatient(ctx, id)
	})
	patientHandler.AddSection("orders", func(ctx context.Context, id uuid.UUID) (any, error) {
		return nursingSvc.ListByPatient(ctx, id)
	})
	patientHandler.RegisterRoutes(root, limit)

	scheduling.NewHandler(schedulingSvc, identitySvc).RegisterRoutes(root, limit)
	documents.NewHandler(documentSvc).RegisterRoutes(root)
	nursing.NewHandler(nursingSvc).RegisterRoutes(root)
	ledger.NewHandler(ledgerSvc).RegisterRoutes(root)
	cms.NewHandler(cmsSvc).RegisterRoutes(root)
	dashboard.NewHandler(dashboard.Sources{
		Content:      cmsSvc,
		Doctors:      identitySvc,
		Patients:     patientSvc,
		Appointments: schedulingSvc,
		Orders:       nursingSvc,
		Ledger:       ledgerSvc,
	}, logger).RegisterRoutes(root)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.WrapHandler(e, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "local":
		return blobstore.NewLocalStore(cfg.StorageDir)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// newCache connects to Redis when configured; a failed connection falls
// back to no caching.
func newCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Cache, func()) {
	if cfg.RedisURL == "" {
		return cache.Noop{}, func() {}
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, "clinic:")
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, home page cache disabled")
		return cache.Noop{}, func() {}
	}
	return r, func() { r.Close() }
}

func newMailer(cfg *config.Config, logger zerolog.Logger) mail.Mailer {
	if cfg.SMTPHost == "" {
		logger.Info().Msg("SMTP_HOST not set, appointment e-mails disabled")
		return mail.Noop{}
	}
	return mail.NewSMTP(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

// formRateLimiter throttles public form posts per client IP. A zero rate
// disables it.
func formRateLimiter(rps float64) echo.MiddlewareFunc {
	if rps <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst * 2,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

// mountOperational registers the probes and the Prometheus endpoint. The
// scraper authenticates as an administrator with a bearer token.
func mountOperational(e *echo.Echo, pool db.Pinger, metrics *middleware.Metrics) {
	e.GET("/health", db.LivenessHandler())
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler(), auth.RequireRole(auth.RoleAdministrator))
}

// csrfSkipper exempts infrastructure endpoints and bearer-token API calls.
func csrfSkipper(c echo.Context) bool {
	if auth.IsPublicPath(c.Request().URL.Path) {
		return true
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	return len(h) > 7 && strings.EqualFold(h[:7], "bearer ")
}
