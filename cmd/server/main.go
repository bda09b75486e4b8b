// Command server runs the claims approval API.
//
// @title                      Claims Approval API
// @version                    1.0
// @description                Reimbursement claims routed through a fixed approver chain, with one-click mail decisions and per-claim chat.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/tbourn/go-claims-backend/docs"
	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	httpapi "github.com/tbourn/go-claims-backend/internal/http"
	"github.com/tbourn/go-claims-backend/internal/http/handlers"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/observability"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/services"
	"github.com/tbourn/go-claims-backend/internal/sysutil"
	"github.com/tbourn/go-claims-backend/internal/tokens"
)

var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, map[string]string{
		"service": cfg.OTEL.ServiceName,
		"version": version,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return fmt.Errorf("db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	files, err := filestore.New(ctx, cfg.UploadDir)
	if err != nil {
		return err
	}
	signer := tokens.NewSigner(cfg.Tokens.Secret, cfg.Tokens.OneClickTTL, cfg.Tokens.SessionTTL)

	mailer, closeMailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	defer func() {
		if err := closeMailer(); err != nil {
			logger.Warn().Err(err).Msg("mailer close")
		}
	}()

	dispatcher := notify.NewDispatcher(notify.DispatcherOptions{
		Mailer:   mailer,
		Renderer: &notify.Renderer{BaseURL: cfg.BaseURL, Signer: signer},
		Load: func(ctx context.Context, uniqueNumber string) (*domain.Approval, error) {
			return repo.GetApproval(ctx, db, uniqueNumber)
		},
		Workers:   cfg.Mail.Workers,
		QueueSize: cfg.Mail.QueueSize,
		Log:       logger.With().Str("component", "notify").Logger(),
	})

	dir := services.NewDirectoryService(db)
	approvals := services.NewApprovalService(db, dir, dispatcher, files, cfg.Chain)
	if cfg.IdempotencyTTL > 0 {
		approvals.IdempotencyTTL = cfg.IdempotencyTTL
	}
	auth := services.NewAuthService(db, signer, mailer, dir, cfg.Tokens.OTPTTL)
	migrations := services.NewMigrationService(db, dir, cfg.Chain, auth)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Sessions: signer,
		Services: handlers.Services{
			Approvals:  approvals,
			Chat:       services.NewChatService(db, dir, dispatcher),
			Tokens:     services.NewTokenService(db, signer, dispatcher, cfg.Tokens.UsedTokenRetention),
			Auth:       auth,
			Admin:      services.NewAdminService(db, files),
			Migrations: migrations,
			Directory:  dir,
		},
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go sweep(ctx, migrations, cfg.SweepInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("api", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// Drain queued notices after the last request could enqueue one.
	if err := dispatcher.Close(sctx); err != nil {
		logger.Warn().Err(err).Msg("notify drain incomplete")
	}
	return nil
}

// newMailer selects the transport. The returned close func is never nil.
func newMailer(cfg config.MailConfig, logger zerolog.Logger) (notify.Mailer, func() error, error) {
	var (
		m      notify.Mailer
		closer = func() error { return nil }
	)
	switch cfg.Transport {
	case "smtp":
		s, err := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.From)
		if err != nil {
			return nil, nil, err
		}
		m = s
	case "nats":
		n, err := notify.NewNATSMailer(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		m, closer = n, n.Close
	default:
		m = notify.LogMailer{Log: logger.With().Str("component", "mail").Logger()}
	}
	if cfg.OverrideEmail != "" {
		logger.Warn().Str("to", cfg.OverrideEmail).Msg("all outbound mail is redirected")
		m = notify.Override{Next: m, To: cfg.OverrideEmail}
	}
	return m, closer, nil
}

// sweep runs housekeeping every interval until ctx ends.
func sweep(ctx context.Context, m *services.MigrationService, every time.Duration, logger zerolog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			rep, err := m.SweepExpired(ctx, now.UTC())
			if err != nil {
				logger.Error().Err(err).Msg("sweep failed")
				continue
			}
			logger.Debug().
				Int64("used_tokens", rep.UsedTokens).
				Int64("idempotency", rep.Idempotency).
				Int("pending_signups", rep.PendingSignups).
				Msg("sweep done")
		}
	}
}
