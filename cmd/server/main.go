// Command server runs the driver portal: pages, JSON API, auth flows, and
// operational endpoints in one process.
//
// Postgres and Redis are optional; without them every store falls back to an
// in-memory implementation, which is enough for local development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"driverportal/internal/draft"
	earningshandler "driverportal/internal/earnings/handler"
	earningsservice "driverportal/internal/earnings/service"
	earningsstore "driverportal/internal/earnings/store"
	"driverportal/internal/gate"
	"driverportal/internal/identity"
	identityhandler "driverportal/internal/identity/handler"
	"driverportal/internal/identity/oauth"
	identityservice "driverportal/internal/identity/service"
	"driverportal/internal/identity/store/reset"
	"driverportal/internal/identity/store/session"
	"driverportal/internal/identity/store/user"
	"driverportal/internal/insurance"
	milestonehandler "driverportal/internal/milestone/handler"
	milestoneservice "driverportal/internal/milestone/service"
	milestonestore "driverportal/internal/milestone/store"
	"driverportal/internal/platform/config"
	"driverportal/internal/platform/database"
	"driverportal/internal/platform/httpserver"
	"driverportal/internal/platform/logger"
	"driverportal/internal/platform/metrics"
	"driverportal/internal/platform/middleware"
	"driverportal/internal/platform/redis"
	"driverportal/internal/profile/events"
	profilehandler "driverportal/internal/profile/handler"
	profileservice "driverportal/internal/profile/service"
	profilestore "driverportal/internal/profile/store"
	transport "driverportal/internal/transport/http"
	"driverportal/pkg/platform/audit"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	healthChecks := make(map[string]func(context.Context) error)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		healthChecks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthChecks["redis"] = redisClient.Health
		log.Info("redis connected")
	}

	auditor := newAuditor(cfg, log)
	defer auditor.Close()

	// Store selection: Postgres and Redis when configured, memory otherwise.
	var (
		users       identityservice.UserStore       = user.NewInMemory()
		profiles    profileservice.Store            = profilestore.NewInMemory()
		rides       earningsservice.RideStore       = earningsstore.NewInMemoryRides()
		withdrawals earningsservice.WithdrawalStore = earningsstore.NewInMemoryWithdrawals()
		codes       milestoneservice.CodeStore      = milestonestore.NewInMemory()
	)
	if db != nil {
		users = user.NewPostgres(db)
		profiles = profilestore.NewPostgres(db)
		rides = earningsstore.NewPostgresRides(db)
		withdrawals = earningsstore.NewPostgresWithdrawals(db)
		codes = milestonestore.NewPostgres(db)
	}

	var (
		sessions identityservice.SessionStore    = session.NewInMemory()
		resets   identityservice.ResetTokenStore = reset.NewInMemory()
		drafts   draft.Store                     = draft.NewInMemoryStore(cfg.DraftTTL)
	)
	if redisClient != nil {
		sessions = session.NewRedis(redisClient.Client)
		resets = reset.NewRedis(redisClient.Client)
		drafts = draft.NewRedisStore(redisClient.Client, cfg.DraftTTL)
	}

	bus := events.NewBus()
	documents := insurance.NewFilesystem(cfg.InsuranceDir)
	profileSvc := profileservice.New(profiles, documents, bus, auditor, m, log)

	provider := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.CallbackURL(),
	})

	earningsSvc := earningsservice.New(rides, withdrawals, auditor, m, log)
	milestoneSvc := milestoneservice.New(earningsSvc, codes, log)

	identitySvc := identityservice.New(
		users, sessions, resets, drafts, profileSvc, milestoneSvc,
		provider,
		identity.NewLogMailer(log),
		identity.NewTokenCodec(cfg.JWTSigningKey),
		auditor, m, log,
		identityservice.Config{SessionTTL: cfg.SessionTTL, BaseURL: cfg.BaseURL},
	)

	limiter := middleware.NewAuthRateLimiter(middleware.DefaultAuthRateLimiterConfig(), log)
	defer limiter.Stop()

	secureCookies := strings.HasPrefix(cfg.BaseURL, "https://")
	router := transport.NewRouter(transport.Deps{
		Logger:       log,
		Identity:     identityhandler.New(identitySvc, log, secureCookies),
		Profile:      profilehandler.New(profileSvc, bus, log),
		Earnings:     earningshandler.New(earningsSvc, log),
		Milestones:   milestonehandler.New(milestoneSvc, log),
		Gate:         gate.New(identitySvc, m, log),
		RateLimiter:  limiter,
		Gatherer:     registry,
		HealthChecks: healthChecks,
		FilesDir:     documents.Root(),
	})

	server := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func newAuditor(cfg config.Server, log *slog.Logger) audit.Publisher {
	if len(cfg.AuditBrokers) == 0 {
		return audit.NewLogPublisher(log)
	}
	publisher, err := audit.NewKafkaPublisher(cfg.AuditBrokers, cfg.AuditTopic, log)
	if err != nil {
		log.Warn("kafka audit publisher unavailable, falling back to log", "error", err)
		return audit.NewLogPublisher(log)
	}
	log.Info("kafka audit publisher connected", "brokers", cfg.AuditBrokers)
	return publisher
}
