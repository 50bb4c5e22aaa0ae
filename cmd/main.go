// cmd/main.go is the application entry point. It wires together all layers
// and starts the HTTP server.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eventia/tickets-service/internal/config"
	"github.com/eventia/tickets-service/internal/database"
	"github.com/eventia/tickets-service/internal/gateway"
	"github.com/eventia/tickets-service/internal/handler"
	"github.com/eventia/tickets-service/internal/monitoring"
	"github.com/eventia/tickets-service/internal/queue"
	"github.com/eventia/tickets-service/internal/repository"
	"github.com/eventia/tickets-service/internal/service"
)

func main() {
	ctx := context.Background()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	store := repository.NewTicketRepository(pool)

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := cache.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, availability cache disabled")
			cache = nil
		}
		cancel()
	}

	availability := gateway.NewEventsGateway(cfg.EventsServiceURL, nil, cache, cfg.AvailabilityCacheTTL)

	var publisher service.EventPublisher = &queue.LogPublisher{Logger: logger}
	if cfg.AMQPURL != "" {
		p, err := queue.NewPublisher(cfg.AMQPURL)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, domain events will only be logged")
		} else {
			defer p.Close()
			publisher = p
			logger.Info("connected to rabbitmq")
		}
	}

	admission := service.NewAdmissionService(availability, store)
	svc := service.NewTicketService(store, admission, publisher, logger)
	ticketHandler := handler.NewTicketHandler(svc)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(monitoring.Middleware)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/tickets", ticketHandler.Mount)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("graceful shutdown failed")
	}
	logger.Info("server stopped")
}
