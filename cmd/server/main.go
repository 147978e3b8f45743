package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eternalist/theprintfarm/internal/auth"
	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/config"
	"github.com/eternalist/theprintfarm/internal/db"
	marketgrpc "github.com/eternalist/theprintfarm/internal/grpc"
	internalhttp "github.com/eternalist/theprintfarm/internal/http"
	"github.com/eternalist/theprintfarm/internal/jobs"
	"github.com/eternalist/theprintfarm/internal/logging"
	"github.com/eternalist/theprintfarm/internal/notify"
	"github.com/eternalist/theprintfarm/internal/operations"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db connection failed")
	}
	defer pool.Close()
	store := db.NewStore(pool)

	deps, err := clients.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("client init failed")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.WithError(err).Warn("client close error")
		}
	}()
	if !deps.Mail.Configured() {
		log.Warn("SENDGRID_API_KEY not set, notification emails will be skipped")
	}

	var dedup notify.Deduper
	if deps.Redis != nil {
		dedup = notify.NewRedisDeduper(deps.Redis, cfg.NotifyDedupTTL)
	}
	dispatcher := notify.NewDispatcher(notify.Config{
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
	}, deps.Mail, dedup, notify.NewRenderer(cfg.FrontendURL), log)
	// The worker outlives the signal context so requests still draining
	// during shutdown can enqueue.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	workerDone := jobs.StartNotificationWorker(workerCtx, dispatcher, log)

	// Interfaces stay nil rather than holding a nil *Supabase.
	var identity operations.Identity
	var remote auth.RemoteIdentity
	if deps.Identity != nil {
		identity = deps.Identity
		remote = deps.Identity
	} else {
		log.Warn("identity provider not configured, account flows are disabled")
	}
	if cfg.SupabaseJWTSecret == "" && remote == nil {
		log.Warn("no token verification available, every authenticated route will reject")
	}
	verifier := auth.NewVerifier(cfg.SupabaseJWTSecret, remote, store.Queries, cfg.IdentityTimeout, log)

	ops := operations.New(operations.Deps{
		Store:       operations.NewStore(store),
		Notifier:    dispatcher,
		Identity:    identity,
		Redis:       deps.Redis,
		FrontendURL: cfg.FrontendURL,
		Log:         log,
	})

	server := internalhttp.NewServer(cfg, ops, verifier, log)
	server.StartCleanup(ctx)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer, err := marketgrpc.NewServer(cfg.ServiceAuthToken)
	if err != nil {
		log.WithError(err).Fatal("grpc service auth init failed")
	}
	marketgrpc.StartReadinessLoop(ctx, healthServer, pool, 15*time.Second, log)

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("grpc listen error")
		}
		log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
		if err := grpcServer.Serve(listener); err != nil {
			log.WithError(err).Fatal("grpc server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown error")
	}
	grpcServer.GracefulStop()
	stopWorker()

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("notification worker did not stop in time")
	}
}
