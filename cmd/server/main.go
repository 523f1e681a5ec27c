package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"libregistry/internal/discovery"
	"libregistry/internal/discovery/geoip"
	"libregistry/internal/feed"
	"libregistry/internal/jwtauth"
	"libregistry/internal/library/metrics"
	libstore "libregistry/internal/library/store"
	"libregistry/internal/platform/config"
	"libregistry/internal/platform/httpserver"
	"libregistry/internal/platform/logger"
	platformredis "libregistry/internal/platform/redis"
	"libregistry/internal/registration/fetch"
	"libregistry/internal/registration/registrar"
	"libregistry/internal/registry/handler"
	audit "libregistry/pkg/platform/audit"
	auditkafka "libregistry/pkg/platform/audit/kafka"
	auditmemory "libregistry/pkg/platform/audit/memory"
	auditpg "libregistry/pkg/platform/audit/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	var st libstore.Store
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = libstore.NewPostgres(db)
	} else {
		log.Warn("no database configured, using in-memory store")
		st = libstore.NewInMemory()
	}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		auditStore = auditpg.New(db)
	}
	publisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(256))
	defer publisher.Close()

	var emitter audit.Emitter = publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := auditkafka.NewPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka publisher setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPub.Close()
		emitter = teeEmitter{publisher, kafkaPub}
	}

	m := metrics.New()

	var resolver geoip.Resolver = geoip.NewStatic(nil)
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		resolver = geoip.NewCached(resolver, redisClient.Client, m)
	}

	reg := registrar.New(st, fetch.NewHTTPFetcher(cfg.FetchTimeout),
		registrar.WithMetrics(m),
		registrar.WithAudit(emitter),
		registrar.WithLogger(log),
	)
	disc := discovery.New(st, resolver,
		discovery.WithRadius(cfg.ServiceRadiusKm),
		discovery.WithMetrics(m),
		discovery.WithLogger(log),
	)
	auth := jwtauth.NewService(cfg.JWTSigningKey, cfg.AdminTokenHash, "libregistry", time.Hour)
	feeds := feed.NewBuilder(cfg.PublicBaseURL)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(reg, disc, st, auth, feeds, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting library registry", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// teeEmitter fans an audit event out to every sink; the first error wins but
// every sink still sees the event.
type teeEmitter []audit.Emitter

func (t teeEmitter) Emit(ctx context.Context, event audit.Event) error {
	var firstErr error
	for _, e := range t {
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
