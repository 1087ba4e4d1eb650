package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/openshelf/critique/pkg/accounts"
	"github.com/openshelf/critique/pkg/api"
	"github.com/openshelf/critique/pkg/catalog"
	"github.com/openshelf/critique/pkg/config"
	"github.com/openshelf/critique/pkg/mailer"
	"github.com/openshelf/critique/pkg/middleware"
	"github.com/openshelf/critique/pkg/observability"
	"github.com/openshelf/critique/pkg/reviews"
	"github.com/openshelf/critique/pkg/signin"
	"github.com/openshelf/critique/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "critique: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is a local-development convenience; deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	accessLog := logrus.New()
	accessLog.SetFormatter(&logrus.JSONFormatter{})
	accessLog.SetOutput(os.Stdout)

	connCfg := postgres.DefaultConnectionConfig(cfg.Database.URL)
	connCfg.MaxConns = cfg.Database.MaxConns
	connCfg.MinConns = cfg.Database.MinConns
	connCfg.Timeout = cfg.Database.Timeout

	db, err := postgres.Connect(connCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database ready")

	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		if cfg.RateLimit.RedisPassword != "" {
			opts.Password = cfg.RateLimit.RedisPassword
		}
		if cfg.RateLimit.RedisDB != 0 {
			opts.DB = cfg.RateLimit.RedisDB
		}
		redisClient = redis.NewClient(opts)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	accountStore := accounts.NewStore(db)
	catalogStore := catalog.NewStore(db)
	reviewStore := reviews.NewStore(db)

	var outbound mailer.Mailer = mailer.NewSMTP(
		cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	if metrics != nil {
		outbound = &instrumentedMailer{next: outbound, metrics: metrics}
	}

	codes := signin.NewCodeGenerator([]byte(cfg.Auth.CodeSecret), cfg.Auth.CodeWindow)
	tokens := signin.NewTokenIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL)
	signinSvc := signin.NewService(accountStore, outbound, codes, tokens)

	if cfg.Auth.AdminUsername != "" {
		admin, err := accountStore.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail)
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to ensure admin account: %w", err)
		}
		logger.WithField("username", admin.Username).Info("admin account ready")
	}

	var limiter *middleware.RateLimiter
	if redisClient != nil {
		limiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window, metrics)
		logger.WithField("window", cfg.RateLimit.Window.String()).Info("sign-in rate limiting enabled")
	}

	handler := api.NewServer(api.Deps{
		Logger:    logger,
		AccessLog: accessLog,
		Metrics:   metrics,
		Accounts:  accountStore,
		Catalog:   catalogStore,
		Reviews:   reviewStore,
		Signin:    signinSvc,
		Tokens:    tokens,
		Limiter:   limiter,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: opsMux,
	}

	go serve(logger, "api", apiServer)
	go serve(logger, "ops", opsServer)

	if metrics != nil {
		go updateGauges(logger, db, metrics)
	}

	shutdowns := []observability.ShutdownFunc{
		func(context.Context) error { return db.Close() },
	}
	if redisClient != nil {
		shutdowns = append(shutdowns, func(context.Context) error { return redisClient.Close() })
	}
	return observability.GracefulShutdown(logger, cfg.Server.ShutdownTimeout,
		[]*http.Server{apiServer, opsServer}, shutdowns...)
}

func serve(logger *observability.Logger, name string, server *http.Server) {
	logger.WithField("addr", server.Addr).Infof("%s listener starting", name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Errorf("%s listener failed", name)
	}
}

// updateGauges refreshes the pool and content gauges on a fixed cadence. Exact
// counts are cheap at this service's scale; the loop dies with the process.
func updateGauges(logger *observability.Logger, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := postgres.Stats(db)
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		metrics.DBConnectionsWaitCount.Set(float64(stats.Waiting))

		for _, g := range []struct {
			table string
			gauge prometheus.Gauge
		}{
			{"users", metrics.AccountsTotal},
			{"titles", metrics.TitlesTotal},
			{"reviews", metrics.ReviewsTotal},
		} {
			var n int64
			if err := db.QueryRow("SELECT COUNT(*) FROM " + g.table).Scan(&n); err != nil {
				logger.WithError(err).Warnf("failed to count %s", g.table)
				continue
			}
			g.gauge.Set(float64(n))
		}
	}
}

// instrumentedMailer counts delivery outcomes around the real mailer
type instrumentedMailer struct {
	next    mailer.Mailer
	metrics *observability.Metrics
}

func (m *instrumentedMailer) Send(to, subject, body string) error {
	err := m.next.Send(to, subject, body)
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.MailDeliveriesTotal.WithLabelValues(status).Inc()
	return err
}
