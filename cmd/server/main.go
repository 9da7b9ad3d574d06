// Command server is graphrt's long-running HTTP front door: it loads
// env config, selects a checkpointer driver, builds an engine, and
// serves the httpapi routes until SIGINT/SIGTERM. Grounded on the
// teacher's own cmd/server/main.go startup/shutdown shape, rewired
// from its DDD chat-assistant wiring (Postgres event store, NATS
// outbox relay, per-aggregate repositories) to the graph-execution
// runtime's simpler collaborator set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duragraph/graphrt/checkpoint"
	"github.com/duragraph/graphrt/checkpoint/memory"
	pgcheckpoint "github.com/duragraph/graphrt/checkpoint/postgres"
	redischeckpoint "github.com/duragraph/graphrt/checkpoint/redis"
	"github.com/duragraph/graphrt/config"
	"github.com/duragraph/graphrt/engine"
	"github.com/duragraph/graphrt/eventbus"
	"github.com/duragraph/graphrt/httpapi"
	"github.com/duragraph/graphrt/obslog"
	"github.com/duragraph/graphrt/registry"
	"github.com/duragraph/graphrt/registry/examples"
	"github.com/duragraph/graphrt/resilience"
	"github.com/duragraph/graphrt/telemetry/metrics"
	"github.com/duragraph/graphrt/telemetry/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := obslog.New(cfg.Log.Level)
	ctx := context.Background()

	fmt.Println(GetVersion().String())
	fmt.Printf("graphrt server starting on %s\n", cfg.ServerAddr())

	cp, closeCP, err := buildCheckpointer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build checkpointer driver %q: %v", cfg.Checkpoint.Driver, err)
	}
	defer closeCP()
	fmt.Printf("checkpoint driver: %s\n", cfg.Checkpoint.Driver)

	m := metrics.New("graphrt")
	instrumentedCP := metrics.InstrumentCheckpointer(cp, m)

	resilientCP := checkpoint.NewResilientCheckpointer("checkpointer", instrumentedCP, resilience.Config{
		MaxConcurrent:           cfg.Engine.MaxConcurrency,
		RetryPolicy:             resilience.DefaultRetryPolicy(),
		BreakerFailureThreshold: cfg.Checkpoint.BreakerThreshold,
		BreakerFailureWindow:    cfg.Checkpoint.BreakerTimeout,
		BreakerTimeout:          cfg.Checkpoint.BreakerTimeout,
		BreakerHalfOpenMax:      1,
		BreakerSuccessThreshold: 2,
	})

	provider, err := tracing.NewProvider(ctx, "graphrt", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		logger.Warn("tracing provider unavailable, continuing without tracing", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing provider shutdown error", "error", err)
			}
		}()
	}

	reg := registry.New()
	reg.Register("echo", examples.Echo)
	reg.Register("delay", examples.Delay)
	reg.Register("counter", examples.Counter)

	rcfg := resilience.Config{
		MaxConcurrent:           cfg.Engine.MaxConcurrency,
		RetryPolicy:             resilience.RetryPolicy{MaxAttempts: cfg.Engine.DefaultMaxAttempts, InitialDelay: cfg.Engine.DefaultInitialDelay, MaxDelay: cfg.Engine.DefaultMaxDelay, Multiplier: cfg.Engine.DefaultMultiplier, Jitter: cfg.Engine.DefaultJitter, Classify: resilience.DefaultClassifier},
		BreakerFailureThreshold: 5,
		BreakerFailureWindow:    30 * time.Second,
		BreakerTimeout:          30 * time.Second,
		BreakerHalfOpenMax:      1,
		BreakerSuccessThreshold: 2,
	}
	mgr := resilience.NewManager("graphrt-engine", rcfg)

	eng := engine.New(reg, mgr, cfg.Engine, false)
	eng.SetMetrics(m)
	if provider != nil {
		eng.SetTracer(provider.Tracer("graphrt"))
	}

	bus := eventbus.New()
	eng.SetEventBus(bus)

	srv, _ := httpapi.New(eng, resilientCP, httpapi.ServerConfig{
		ServiceName: "graphrt",
		AuthToken:   os.Getenv("AUTH_TOKEN"),
		Metrics:     m,
	})

	go func() {
		if err := srv.Start(cfg.ServerAddr()); err != nil {
			logger.Info("http server stopped", "error", err)
		}
	}()
	fmt.Printf("listening on %s\n", cfg.ServerAddr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}
	fmt.Println("shutdown complete")
}

// buildCheckpointer selects a checkpoint.Checkpointer driver per
// cfg.Checkpoint.Driver, returning a cleanup func that closes any
// underlying connection pool/client.
func buildCheckpointer(ctx context.Context, cfg *config.Config) (checkpoint.Checkpointer, func(), error) {
	noop := func() {}
	switch cfg.Checkpoint.Driver {
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.Database.SSLMode)
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, noop, err
		}
		return pgcheckpoint.New(pool), func() { pool.Close() }, nil
	case "redis":
		driver, err := redischeckpoint.New(ctx, redischeckpoint.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, noop, err
		}
		return driver, noop, nil
	default:
		return memory.New(), noop, nil
	}
}
