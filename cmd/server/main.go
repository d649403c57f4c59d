package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"agentgate/internal/apikey"
	"agentgate/internal/audit"
	"agentgate/internal/auth/service"
	"agentgate/internal/auth/store"
	devicestore "agentgate/internal/auth/store/devicecode"
	sessionstore "agentgate/internal/auth/store/session"
	"agentgate/internal/authz"
	"agentgate/internal/identity"
	"agentgate/internal/platform/config"
	"agentgate/internal/platform/httpserver"
	"agentgate/internal/platform/logger"
	"agentgate/internal/platform/metrics"
	"agentgate/internal/platform/postgres"
	"agentgate/internal/platform/redis"
	"agentgate/internal/platform/sweep"
	"agentgate/internal/token"
	httptransport "agentgate/internal/transport/http"
	"agentgate/migrations"
	"agentgate/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

// main wires configuration, stores, services, and the HTTP router, then runs
// the server and the expiry sweepers until a shutdown signal arrives.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("agentgate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := token.NewCodec(cfg.JWTSigningKey, cfg.Issuer, cfg.Audience)
	if err != nil {
		return fmt.Errorf("build token codec: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Store selection: redis beats postgres for sessions (per-key TTL means
	// near-free expiry), postgres beats memory everywhere, memory is the
	// zero-config development default.
	var (
		sessions store.SessionStore = sessionstore.New()
		devices  store.DeviceCodeStore
		users    identity.UserStore         = identity.NewInMemoryUserStore()
		orgs     identity.OrganizationStore = identity.NewInMemoryOrganizationStore()
		keys     apikey.Store               = apikey.NewInMemoryStore()
	)
	switch {
	case redisClient != nil:
		sessions = sessionstore.NewRedis(redisClient.Client)
	case pool != nil:
		sessions = sessionstore.NewPostgres(pool)
	}
	if pool != nil {
		users = identity.NewPostgresUserStore(pool)
		orgs = identity.NewPostgresOrganizationStore(pool)
		keys = apikey.NewPostgresStore(pool)
	}
	if cfg.Postgres.URL != "" {
		// The device-code store rides database/sql for its conditional-UPDATE
		// authorize CAS; it shares the database, not the pgx pool.
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open device-code database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("device-code database ping failed: %w", err)
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		devices = devicestore.NewPostgres(db)
	} else {
		devices = devicestore.New()
	}

	auditOpts := []audit.Option{audit.WithAsyncBuffer(1024), audit.WithLogger(log)}
	var auditSink audit.Sink = audit.NewInMemorySink()
	if cfg.Kafka.Brokers != "" {
		kafkaSink, err := audit.NewKafkaSink(ctx, strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.AuditTopic, log)
		if err != nil {
			return fmt.Errorf("connect audit sink: %w", err)
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
		// Broker outages divert events to memory instead of dropping them.
		auditOpts = append(auditOpts, audit.WithFallbackSink(audit.NewInMemorySink(), circuit.New("audit-kafka")))
	}
	auditPub := audit.NewPublisher(auditSink, auditOpts...)
	defer auditPub.Close()

	m := metrics.New()

	var sessionOpts []service.SessionOption
	if cfg.IsDevelopment() && cfg.AllowDevTokens {
		log.Warn("development tokens enabled; signed tokens from this process skip the session store")
		sessionOpts = append(sessionOpts, service.WithDevTokenAuthority(service.NewDevTokenAuthority(codec)))
	}

	sessionSvc := service.NewSessionService(
		sessions, users, orgs, codec, auditPub, m, log,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		sessionOpts...,
	)
	deviceSvc := service.NewDeviceFlowService(
		devices, users, codec, auditPub, m, log,
		cfg.AccessTokenTTL,
	)
	apiKeySvc := apikey.NewService(keys, log)

	handler := httptransport.NewHandler(httptransport.Config{
		Sessions:      sessionSvc,
		Devices:       deviceSvc,
		Users:         users,
		Orgs:          orgs,
		Logger:        log,
		SecureCookies: !cfg.IsDevelopment(),
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	router := httptransport.NewRouter(handler, authz.NewContextBuilder(codec), apiKeySvc, log, m)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("agentgate listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweep.New("sessions", cfg.SweepInterval, sessionSvc.CleanupExpiredSessions, log).Run(gctx)
	})
	g.Go(func() error {
		return sweep.New("device-codes", cfg.SweepInterval, deviceSvc.CleanupExpiredDeviceCodes, log).Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("agentgate stopped")
	return nil
}
