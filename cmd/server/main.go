package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	compliancehandler "escrowd/internal/compliance/handler"
	compliancemetrics "escrowd/internal/compliance/metrics"
	complianceservice "escrowd/internal/compliance/service"
	compliancecache "escrowd/internal/compliance/store/cache"
	compliancememory "escrowd/internal/compliance/store/memory"
	compliancepostgres "escrowd/internal/compliance/store/postgres"
	escrowhandler "escrowd/internal/escrow/handler"
	escrowmetrics "escrowd/internal/escrow/metrics"
	escrowservice "escrowd/internal/escrow/service"
	escrowmemory "escrowd/internal/escrow/store/memory"
	escrowpostgres "escrowd/internal/escrow/store/postgres"
	"escrowd/internal/platform/config"
	"escrowd/internal/platform/httpserver"
	"escrowd/internal/platform/logger"
	platformotel "escrowd/internal/platform/otel"
	"escrowd/internal/platform/postgres"
	platformredis "escrowd/internal/platform/redis"
	ratelimitmetrics "escrowd/internal/ratelimit/metrics"
	ratelimitmw "escrowd/internal/ratelimit/middleware"
	ratelimitmodels "escrowd/internal/ratelimit/models"
	"escrowd/internal/ratelimit/store/bucket"
	"escrowd/internal/reporting"
	reportinghandler "escrowd/internal/reporting/handler"
	"escrowd/internal/session"
	httptransport "escrowd/internal/transport/http"
	"escrowd/internal/yield"
	yieldhandler "escrowd/internal/yield/handler"
	yieldservice "escrowd/internal/yield/service"
	audit "escrowd/pkg/platform/audit"
	"escrowd/pkg/platform/audit/publishers/compliance"
	auditmemory "escrowd/pkg/platform/audit/store/memory"
	auditpostgres "escrowd/pkg/platform/audit/store/postgres"
	"escrowd/pkg/platform/audit/worker"
	"escrowd/pkg/platform/keylock"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("escrowd stopped", "error", err)
		os.Exit(1)
	}
}

// stores groups the storage backends selected by configuration.
type stores struct {
	db         *sql.DB
	escrows    escrowservice.Store
	compliance complianceservice.Provider
	audit      audit.Store
	outbox     *auditpostgres.Store
	locker     keylock.Locker
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.Postgres.URL == "" {
		log.Info("no database configured, using in-memory stores")
		return &stores{
			escrows:    escrowmemory.New(),
			compliance: compliancememory.New(),
			audit:      auditmemory.NewInMemoryStore(),
			locker:     keylock.NewSharded(cfg.Postgres.LockTimeout),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	outbox := auditpostgres.New(db)
	return &stores{
		db:         db,
		escrows:    escrowpostgres.New(db),
		compliance: compliancepostgres.New(db),
		audit:      outbox,
		outbox:     outbox,
		locker:     postgres.NewKeyLocker(db, cfg.Postgres.LockTimeout),
	}, nil
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := platformotel.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	calculator, err := yield.NewCalculator(cfg.Yield.APYPercent)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	health := map[string]httptransport.HealthCheck{}
	if st.db != nil {
		defer st.db.Close()
		health["postgres"] = st.db.PingContext
	}

	complianceMetrics := compliancemetrics.New(reg)
	provider := st.compliance
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
		provider = compliancecache.New(provider, redisClient.Client, cfg.Redis.CacheTTL,
			compliancecache.WithLogger(log),
			compliancecache.WithMetrics(complianceMetrics),
		)
	}

	publisher := compliance.New(st.audit,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)

	registry := complianceservice.New(provider,
		complianceservice.WithLogger(log),
		complianceservice.WithMetrics(complianceMetrics),
		complianceservice.WithAuditPublisher(publisher),
		complianceservice.WithLocker(st.locker),
	)
	ledger := escrowservice.New(st.escrows, registry,
		escrowservice.WithLogger(log),
		escrowservice.WithMetrics(escrowmetrics.New(reg)),
		escrowservice.WithAuditPublisher(publisher),
		escrowservice.WithLocker(st.locker),
	)
	yields := yieldservice.New(ledger, calculator)
	projector := reporting.New(ledger, registry, yields)

	if err := startRelay(ctx, cfg.Kafka, st.outbox, log); err != nil {
		return err
	}

	limiter := newRateLimiter(cfg.RateLimit, redisClient, reg, log)

	escrows := escrowhandler.New(ledger, log)
	complianceRoutes := compliancehandler.New(registry, log)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:     log,
		Verifier:   session.NewJWTService(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.Audience),
		AdminToken: cfg.AdminToken,
		Gatherer:   reg,
		Health:     health,
		Routes: []httptransport.Routes{
			escrows,
			complianceRoutes,
			yieldhandler.New(yields, log),
			reportinghandler.New(projector, log),
		},
		Admin:     []httptransport.AdminRoutes{escrows, complianceRoutes},
		RateLimit: limiter.Handler,
	})
	if cfg.AdminToken == "" {
		log.Warn("ESCROWD_ADMIN_TOKEN is empty, admin routes are disabled")
	}

	return httpserver.Serve(ctx, httpserver.New(cfg.Addr, router), cfg.ShutdownTimeout, log)
}

// newRateLimiter shares windows through Redis when it is configured and keeps
// an in-process store as the fallback.
func newRateLimiter(cfg config.RateLimit, redisClient *platformredis.Client, reg prometheus.Registerer, log *slog.Logger) *ratelimitmw.Middleware {
	reads := ratelimitmodels.Limit{RequestsPerWindow: cfg.ReadsPerWindow, Window: cfg.Window}
	writes := ratelimitmodels.Limit{RequestsPerWindow: cfg.WritesPerWindow, Window: cfg.Window}
	opts := []ratelimitmw.Option{
		ratelimitmw.WithDisabled(!cfg.Enabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	}
	if redisClient == nil {
		return ratelimitmw.New(bucket.New(), reads, writes, log, opts...)
	}
	opts = append(opts, ratelimitmw.WithFallback(bucket.New()))
	return ratelimitmw.New(bucket.NewRedis(redisClient.Client), reads, writes, log, opts...)
}

// startRelay publishes committed audit events to Kafka. It needs both
// brokers and the Postgres outbox.
func startRelay(ctx context.Context, cfg config.Kafka, outbox *auditpostgres.Store, log *slog.Logger) error {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	if outbox == nil {
		log.Warn("kafka brokers configured without a database, audit relay disabled")
		return nil
	}

	producer, err := worker.NewKafkaProducer(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return err
	}
	if err := producer.EnsureTopic(ctx, cfg.Partitions, cfg.Replication); err != nil {
		producer.Close()
		return err
	}

	relay := worker.NewWorker(outbox, producer,
		worker.WithLogger(log),
		worker.WithInterval(cfg.RelayInterval),
	)
	go func() {
		defer producer.Close()
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit relay stopped", "error", err)
		}
	}()
	log.Info("audit relay started", "topic", cfg.AuditTopic, "brokers", cfg.Brokers)
	return nil
}
