package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/outriggerhq/outrigger/internal/dispatch"
	"github.com/outriggerhq/outrigger/internal/kv"
	"github.com/outriggerhq/outrigger/internal/queue"
	"github.com/outriggerhq/outrigger/internal/schedule"
	"github.com/outriggerhq/outrigger/internal/scheduler"
	"github.com/outriggerhq/outrigger/internal/server"
	"github.com/outriggerhq/outrigger/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	_ = godotenv.Load()

	cfg := server.LoadConfig()
	if cfg.DatabaseURL == "" {
		slog.Error("refusing to start without an entity store", "hint", "set DATABASE_URL to a Postgres DSN")
		os.Exit(1)
	}

	nodeID := uuid.NewString()
	slog.Info("starting scheduler", "node_id", nodeID, "mode", string(cfg.Mode), "cloud", cfg.Cloud, "tick_interval", cfg.TickInterval.String())

	// Entity store
	entities, err := store.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		slog.Error("failed to open entity store", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		slog.Error("failed to create JetStream context", "error", err)
		os.Exit(1)
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSetup()

	if err := queue.SetupJetStream(setupCtx, js); err != nil {
		slog.Error("failed to set up JetStream", "error", err)
		os.Exit(1)
	}

	locksBucket, err := js.KeyValue(setupCtx, queue.BucketLocks)
	if err != nil {
		slog.Error("failed to open locks bucket", "error", err)
		os.Exit(1)
	}
	nodesBucket, err := js.KeyValue(setupCtx, queue.BucketNodes)
	if err != nil {
		slog.Error("failed to open nodes bucket", "error", err)
		os.Exit(1)
	}

	slog.Info("connected to NATS", "url", cfg.NatsURL)

	// Dispatch pipeline: builder -> guard -> JetStream publisher
	builder := schedule.NewBuilder(entities)
	locks := kv.NewLockStore(locksBucket)
	guard := dispatch.New(locks, queue.NewPublisher(js, nodeID), nodeID)

	sched := scheduler.New(entities, builder, guard, scheduler.Options{
		Mode:     cfg.Mode,
		Cloud:    cfg.Cloud,
		Interval: cfg.TickInterval,
		Beacon:   queue.NewNodeBeacon(nodesBucket, nodeID),
	})
	sched.Start()
	defer sched.Stop()

	// Ops HTTP surface
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewRouter(sched, entities, locks),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		slog.Info("ops server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("scheduler stopped")
}
