// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and workers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/rueidis"

	"github.com/eventpass/eventpass/internal/blob"
	"github.com/eventpass/eventpass/internal/config"
	"github.com/eventpass/eventpass/internal/database"
	"github.com/eventpass/eventpass/internal/handler"
	"github.com/eventpass/eventpass/internal/identity"
	"github.com/eventpass/eventpass/internal/logger"
	"github.com/eventpass/eventpass/internal/payment"
	"github.com/eventpass/eventpass/internal/repository"
	"github.com/eventpass/eventpass/internal/service"
	"github.com/eventpass/eventpass/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel)

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.Info("connected to postgres")

	// ── 2. External collaborators ─────────────────────────────────────────
	blobs, err := blob.New(cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobUseSSL, cfg.TicketBucket)
	if err != nil {
		log.WithError(err).Fatal("blob store init failed")
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("blob bucket init failed")
	}

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		log.WithError(err).Fatal("redis connect failed")
	}
	defer redisClient.Close()

	var payments service.CheckoutProvider
	if cfg.StripeSecretKey != "" {
		payments = payment.New(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.TicketPriceCents)
	} else {
		log.Warn("no stripe key configured, payments disabled")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	svc := service.NewTicketing(eventRepo, regRepo, ticketRepo, blobs, payments, cfg.TicketURLTTL, log)
	h := handler.NewTicketingHandler(svc)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(log))     // structured access log
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	// API routes require a verified identity from the gateway.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
			r.Get("/{id}/stats", h.EventStats)
			r.Post("/{id}/register", h.Register)
			r.Get("/{id}/registrations", h.ListRegistrations)
			r.Post("/{id}/pay", h.Pay)
		})
		r.Post("/scan", h.Scan)
		r.Get("/tickets/{id}/artifact", h.TicketArtifact)
	})

	// ── 5. Background workers ─────────────────────────────────────────────
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	publisher := worker.NewPublisher(
		outboxRepo,
		worker.NewRedisStream(redisClient, cfg.EventStream),
		cfg.PublisherPollInterval,
		cfg.PublisherBatchSize,
		log,
	)
	go publisher.Run(workerCtx)

	sweeper := worker.NewOrphanSweeper(ticketRepo, cfg.OrphanSweepInterval, cfg.OrphanMinAge, log)
	go sweeper.Run(workerCtx)

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("graceful shutdown failed")
	}
	log.Info("server stopped")
}
