package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	certhandler "esign/internal/certificate/handler"
	certservice "esign/internal/certificate/service"
	certstore "esign/internal/certificate/store"
	kychandler "esign/internal/kyc/handler"
	kycservice "esign/internal/kyc/service"
	"esign/internal/notification"
	"esign/internal/peruri"
	"esign/internal/platform/config"
	"esign/internal/platform/database"
	"esign/internal/platform/health"
	"esign/internal/platform/httpserver"
	"esign/internal/platform/kafka/producer"
	"esign/internal/platform/logger"
	"esign/internal/platform/metrics"
	"esign/internal/platform/redis"
	"esign/internal/ratelimit"
	"esign/internal/session"
	"esign/internal/storage"
	userstore "esign/internal/user/store"
	"esign/pkg/platform/audit"
	outboxmetrics "esign/pkg/platform/audit/outbox/metrics"
	outboxstore "esign/pkg/platform/audit/outbox/store/postgres"
	outboxworker "esign/pkg/platform/audit/outbox/worker"
	auditpublisher "esign/pkg/platform/audit/publisher"
	auditstore "esign/pkg/platform/audit/store/postgres"
	"esign/pkg/platform/circuit"
	"esign/pkg/platform/middleware/admin"
	"esign/pkg/platform/middleware/auth"
	"esign/pkg/platform/middleware/metadata"
	"esign/pkg/platform/middleware/request"
	"esign/pkg/platform/middleware/requesttime"
)

const outboxMaintenanceInterval = time.Minute

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("esign stopped", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until a signal or a fatal error.
func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database.URL, log); err != nil {
			return err
		}
	}
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	db := pool.DB

	appMetrics := metrics.New()
	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("postgres", pool.Health)

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var (
		tokenCache  peruri.TokenCache   = peruri.NewLRUTokenCache(16, cfg.Peruri.TokenTTL)
		notifier    kycservice.Notifier = notification.NewLogQueue(log)
		submissions ratelimit.Store     = ratelimit.NewInMemoryStore()
	)
	if redisClient != nil {
		defer redisClient.Close()
		tokenCache = peruri.NewRedisTokenCache(redisClient.Client)
		notifier = notification.NewRedisQueue(redisClient.Client, notification.DefaultQueueKey)
		submissions = ratelimit.NewRedisStore(redisClient.Client, "esign:ratelimit:")
		healthHandler.RegisterCheck("redis", redisClient.Health)
	} else {
		log.Warn("REDIS_URL not set, using in-process token cache, rate limits and no notification queue")
	}

	// Activity entries land in the outbox inside the request path; the worker
	// ships them to Kafka.
	activityPublisher := auditpublisher.NewPublisher(auditstore.New(db),
		auditpublisher.WithAsyncBuffer(cfg.Activity.BufferSize),
		auditpublisher.WithPublisherLogger(log),
	)
	defer activityPublisher.Close()
	activityLogger := audit.NewLogger(log, activityPublisher)

	var worker *outboxworker.Worker
	if cfg.Kafka.Brokers != "" {
		producerCfg := producer.DefaultConfig(cfg.Kafka.Brokers)
		producerCfg.Acks = cfg.Kafka.Acks
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close()
		healthHandler.RegisterCheck("kafka", kafkaProducer.Health)

		worker = outboxworker.New(outboxstore.New(db), kafkaProducer,
			outboxworker.WithTopic(cfg.Activity.Topic),
			outboxworker.WithPollInterval(cfg.Activity.PollInterval),
			outboxworker.WithRetention(cfg.Activity.Retention),
			outboxworker.WithMetrics(outboxmetrics.New()),
			outboxworker.WithLogger(log),
		)
	} else {
		log.Warn("KAFKA_BROKERS not set, activity events stay in the outbox")
	}

	breaker := circuit.New("peruri", circuit.WithStateChangeHook(func(name string, to circuit.State) {
		log.Warn("circuit breaker state changed", "breaker", name, "state", to.String())
	}))
	gateway := peruri.New(peruri.Config{
		BaseURL:      cfg.Peruri.BaseURL,
		APIKey:       cfg.Peruri.APIKey,
		SystemID:     cfg.Peruri.SystemID,
		TokenTTL:     cfg.Peruri.TokenTTL,
		TokenTimeout: cfg.Peruri.TokenTimeout,
	},
		peruri.WithTokenCache(tokenCache),
		peruri.WithMetrics(appMetrics),
		peruri.WithBreaker(breaker),
		peruri.WithLogger(log),
	)
	healthHandler.RegisterCheck("peruri", gateway.Health)

	txRunner := newPostgresTx(db)
	certService := certservice.New(certstore.NewPostgres(db), txRunner,
		certservice.WithMetrics(appMetrics),
		certservice.WithLogger(log),
	)
	files := storage.New(storage.Config{
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		SigningKey:    []byte(cfg.Storage.SigningKey),
		MaxFileBytes:  cfg.Storage.MaxFileBytes,
	})
	kycService := kycservice.New(gateway, certService, userstore.NewPostgres(db), txRunner,
		kycservice.Config{
			SystemID:            cfg.Peruri.SystemID,
			CheckTimeout:        cfg.Peruri.CheckTimeout,
			KYCTimeout:          cfg.Peruri.KYCTimeout,
			RegistrationTimeout: cfg.Peruri.RegistrationTimeout,
			DocumentURLTTL:      cfg.Storage.URLTTL,
		},
		kycservice.WithFileStorage(files),
		kycservice.WithNotifier(notifier),
		kycservice.WithActivityLogger(activityLogger),
		kycservice.WithMetrics(appMetrics),
		kycservice.WithLogger(log),
	)

	sessions := session.NewService(cfg.SessionSigningKey)
	limiter := ratelimit.New(submissions, cfg.RateLimit.Submissions, cfg.RateLimit.Window, log,
		ratelimit.WithMetrics(appMetrics),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)
	kycHandler := kychandler.New(kycService, log, kychandler.WithSubmissionLimit(limiter.LimitUser("kyc")))
	certHandler := certhandler.New(certService, log)

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.RequestTimeout))
		r.Use(request.ContentTypeJSON)
		r.Use(appMetrics.LatencyMiddleware)
		r.Use(auth.RequireSession(sessions, log))
		kycHandler.Register(r)
		certHandler.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		certHandler.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, r)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting esign", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if worker != nil {
		worker.Start()
		g.Go(func() error {
			maintainOutbox(gctx, worker, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// Flush buffered activity into the outbox before the worker drains it.
		activityPublisher.Close()
		if worker != nil {
			if stopErr := worker.Stop(shutdownCtx); stopErr != nil {
				log.Warn("outbox worker did not stop cleanly", "error", stopErr)
			}
		}
		return err
	})

	return g.Wait()
}

func maintainOutbox(ctx context.Context, worker *outboxworker.Worker, log *slog.Logger) {
	ticker := time.NewTicker(outboxMaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := worker.Maintain(ctx); err != nil {
				log.Warn("outbox maintenance failed", "error", err)
			}
		}
	}
}
