package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"studentreg/internal/catalog"
	"studentreg/internal/platform/config"
	"studentreg/internal/platform/kafka"
	platformmetrics "studentreg/internal/platform/metrics"
	"studentreg/internal/platform/postgres"
	platformredis "studentreg/internal/platform/redis"
	"studentreg/internal/platform/tracing"
	ratelimit "studentreg/internal/ratelimit/middleware"
	rlmodels "studentreg/internal/ratelimit/models"
	"studentreg/internal/ratelimit/store/bucket"
	"studentreg/internal/registration/gateway"
	reghandler "studentreg/internal/registration/handler"
	regmetrics "studentreg/internal/registration/metrics"
	"studentreg/internal/registration/service"
	"studentreg/internal/registration/store"
	rosterhandler "studentreg/internal/roster/handler"
	rosterservice "studentreg/internal/roster/service"
	rostersource "studentreg/internal/roster/source"
	rosterstore "studentreg/internal/roster/store"
	"studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/audit/publisher"
	auditkafka "studentreg/pkg/platform/audit/store/kafka"
	auditmemory "studentreg/pkg/platform/audit/store/memory"
	auditpostgres "studentreg/pkg/platform/audit/store/postgres"
	"studentreg/pkg/platform/circuit"
	"studentreg/pkg/platform/httputil"
)

const (
	auditBuffer      = 1024
	auditMemoryLimit = 10000
)

type app struct {
	router        http.Handler
	board         *rosterservice.Board
	sweeps        []func(context.Context) int
	formStoreKind string
	gatewayKind   string
	closers       []func(context.Context) error
}

func (a *app) close(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn("shutdown step failed", "error", err)
		}
	}
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// buildApp opens every backing service named in cfg and assembles the router.
// Optional backends (redis, postgres, kafka, gateway URL) fall back to
// in-process implementations when unset.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close(log)
		}
	}()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	provider, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(provider.Shutdown)

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var formStore service.Store
	if redisClient != nil {
		a.onClose(func(context.Context) error { return redisClient.Close() })
		formStore = store.NewRedis(redisClient.Client, store.WithRedisTTL(cfg.FormTTL))
		a.formStoreKind = "redis"
	} else {
		mem := store.NewInMemory(store.WithMemoryTTL(cfg.FormTTL))
		formStore = mem
		a.sweeps = append(a.sweeps, mem.Sweep)
		a.formStoreKind = "memory"
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		if db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return db.Close() })
	}

	kafkaClient, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if kafkaClient != nil {
		a.onClose(func(context.Context) error { kafkaClient.Close(); return nil })
	}

	auditStore, auditLog, err := buildAudit(ctx, db, kafkaClient, cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(prometheus.DefaultRegisterer)),
	)
	a.onClose(func(context.Context) error { auditPublisher.Close(); return nil })

	gw := buildGateway(cfg.Gateway, log)
	a.gatewayKind = "mock"
	if cfg.Gateway.URL != "" {
		a.gatewayKind = "http"
	}

	regService, err := service.New(formStore, gw, cat,
		service.WithLogger(log),
		service.WithMetrics(regmetrics.New()),
		service.WithAuditPublisher(auditPublisher),
		service.WithTracer(provider.Tracer()),
	)
	if err != nil {
		return nil, err
	}

	board, err := buildBoard(ctx, cfg.Roster, db, auditPublisher, log)
	if err != nil {
		return nil, err
	}
	a.board = board

	rl := buildRateLimit(cfg.RateLimit, redisClient, log)
	if mem, ok := rl.limiter.(*bucket.InMemoryBucketStore); ok {
		a.sweeps = append(a.sweeps, mem.Sweep)
	}

	httpMetrics := platformmetrics.New()
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(redisClient, db))
	reghandler.New(regService, log, httpMetrics, cfg.Server.RequestTimeout,
		reghandler.WithRateLimit(rl.middleware),
	).Register(r)
	rosterhandler.New(board, auditLog, cfg.Server.AdminToken, log, httpMetrics).Register(r)
	a.router = r
	return a, nil
}

type rateLimit struct {
	middleware *ratelimit.Middleware
	limiter    ratelimit.Limiter
}

// buildRateLimit shares budgets through redis when it is configured.
func buildRateLimit(cfg config.RateLimitConfig, redisClient *platformredis.Client, log *slog.Logger) rateLimit {
	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = bucket.NewRedisBucketStore(redisClient.Client, nil)
	} else {
		limiter = bucket.NewInMemoryBucketStore(nil)
	}
	mw := ratelimit.New(limiter, log,
		ratelimit.WithDisabled(!cfg.Enabled),
		ratelimit.WithLimit(rlmodels.ClassCreate, rlmodels.Limit{Requests: cfg.CreateRequests, Window: cfg.Window}),
		ratelimit.WithLimit(rlmodels.ClassSubmit, rlmodels.Limit{Requests: cfg.SubmitRequests, Window: cfg.Window}),
	)
	return rateLimit{middleware: mw, limiter: limiter}
}

// buildAudit fans events out to every configured sink. The returned lister
// prefers Postgres and falls back to the bounded in-memory log.
func buildAudit(ctx context.Context, db *sql.DB, kafkaClient *kgo.Client, topic string) (audit.Store, audit.Lister, error) {
	memory := auditmemory.NewInMemoryStore(auditMemoryLimit)
	sinks := audit.Fanout{memory}
	var lister audit.Lister = memory

	if db != nil {
		pg := auditpostgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
		lister = pg
	}
	if kafkaClient != nil {
		sinks = append(sinks, auditkafka.New(kafkaClient, topic))
	}
	return sinks, lister, nil
}

func buildGateway(cfg config.GatewayConfig, log *slog.Logger) service.Gateway {
	if cfg.URL == "" {
		return gateway.Mock{Latency: cfg.MockLatency}
	}
	breaker := circuit.New("signup-gateway",
		circuit.WithFailureThreshold(5),
		circuit.WithCooldown(15*time.Second),
	)
	return gateway.NewGuarded(gateway.NewHTTP(cfg.URL, gateway.WithTimeout(cfg.Timeout)), breaker, log)
}

func buildBoard(ctx context.Context, cfg config.RosterConfig, db *sql.DB, auditPublisher *publisher.Publisher, log *slog.Logger) (*rosterservice.Board, error) {
	remote := rostersource.NewHTTP(cfg.SourceURL, cfg.CacheTTL)

	var (
		src  rosterservice.Source = remote
		sink rosterservice.Sink   = rosterstore.NewLogSink(log)
	)
	if db != nil {
		pg := rosterstore.NewPostgres(db, rosterstore.WithAuditStore(auditpostgres.New(db)))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		src = rostersource.Fallback{Primary: pg, Secondary: remote}
		sink = pg
	}
	return rosterservice.New(src, sink,
		rosterservice.WithLogger(log),
		rosterservice.WithAuditPublisher(auditPublisher),
		rosterservice.WithMinSubmitDuration(cfg.SubmitDuration),
	)
}

func healthHandler(redisClient *platformredis.Client, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		var failed []error
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Health(ctx); err != nil {
				checks["redis"] = err.Error()
				failed = append(failed, err)
			}
		}
		if db != nil {
			checks["postgres"] = "ok"
			if err := db.PingContext(ctx); err != nil {
				checks["postgres"] = err.Error()
				failed = append(failed, err)
			}
		}
		status := http.StatusOK
		if errors.Join(failed...) != nil {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
	}
}
