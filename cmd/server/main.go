// Command server runs the probate filing service: the HTTP API, the
// Postgres-backed filing store, the Redis summary cache and the Kafka
// event stream. Business logic lives in the internal packages; main only
// wires dependencies.
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"probata/internal/events"
	"probata/internal/filing/adapters"
	"probata/internal/filing/handler"
	filingmetrics "probata/internal/filing/metrics"
	"probata/internal/filing/service"
	"probata/internal/filing/store"
	"probata/internal/platform/config"
	"probata/internal/platform/httpserver"
	"probata/internal/platform/logger"
	"probata/internal/platform/metrics"
	platformredis "probata/internal/platform/redis"
	"probata/internal/platform/token"
	"probata/internal/ratelimit"
	"probata/internal/storage"
	"probata/pkg/platform/audit"
	auditpublisher "probata/pkg/platform/audit/publisher"
	auditmemory "probata/pkg/platform/audit/store/memory"
	auditpostgres "probata/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	// Persistence: Postgres when configured, in-memory otherwise so the
	// service still runs in development.
	var (
		filingStore store.Store
		txRunner    service.TxRunner
		auditStore  audit.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("failed to reach postgres", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		if err := auditpostgres.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure audit schema", "error", err)
			os.Exit(1)
		}
		filingStore = store.NewPostgresStore(db)
		txRunner = store.NewSQLTxRunner(db)
		auditStore = auditpostgres.New(db)
		log.Info("filing store: postgres")
	} else {
		filingStore = store.NewInMemoryStore()
		txRunner = service.NewShardedTxRunner()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("filing store: in-memory, data will not survive restarts")
	}

	if cfg.Server.SeedDemo {
		seeded, err := store.SeedDemo(context.Background(), filingStore, time.Now().UTC())
		if err != nil {
			log.Warn("failed to seed demo application", "error", err)
		} else {
			log.Info("seeded demo application", "application_id", seeded.ID.String())
		}
	}

	trail := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(cfg.Server.AuditBuffer))
	defer trail.Close()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(filingmetrics.New()),
		service.WithConsentTTL(cfg.Consent.TokenTTL),
		service.WithAuditTrail(trail),
	}

	// Summary cache, optional.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithSummaryCache(
			store.NewSummaryCache(redisClient.Client, cfg.Redis.SummaryTTL)))
		log.Info("summary cache: redis")
	}

	// Event stream, optional.
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		publisher := events.NewPublisher(sink,
			events.WithLogger(log),
			events.WithAsyncBuffer(cfg.Kafka.AsyncBuffer))
		defer publisher.Close()
		opts = append(opts, service.WithEventPublisher(publisher))
		log.Info("event sink: kafka", "topic", cfg.Kafka.Topic)
	}

	renderer, err := adapters.NewTemplateRenderer(storage.NewInMemoryBlobStore())
	if err != nil {
		log.Error("failed to build document renderer", "error", err)
		os.Exit(1)
	}
	notifier := adapters.NewChannelNotifier(adapters.NewLogSender(log), cfg.Server.PublicBaseURL, log)

	svc := service.New(filingStore, txRunner, renderer, notifier, opts...)

	tokens := token.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	httpMetrics := metrics.New()

	// Consent responses carry guessable-looking tokens, so the public route
	// gets a per-IP limit.
	consentLimiter := ratelimit.NewMiddleware(ratelimit.NewInMemoryBucketStore(), log,
		cfg.RateLimit.ConsentLimit, cfg.RateLimit.ConsentWindow)

	router := chi.NewRouter()
	handler.New(svc, log, httpMetrics, token.NewMiddlewareAdapter(tokens),
		handler.WithConsentRateLimit(consentLimiter.LimitByIP)).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting probata filing service", "addr", cfg.Server.Addr)
	if err := httpserver.Run(srv, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
